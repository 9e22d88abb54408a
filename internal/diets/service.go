package diets

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDietNotFound   = errors.New("diet not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownMeal    = errors.New("unknown meal")
	ErrInvalidFormat  = errors.New("unsupported export format")
)

// Service handles diets business logic
type Service struct {
	diets  storage.DietsStorage
	meals  storage.MealsStorage
	logger *zap.SugaredLogger
}

// NewService creates a new diets service
func NewService(diets storage.DietsStorage, meals storage.MealsStorage, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{diets: diets, meals: meals, logger: logger}
}

func (s *Service) CreateDiet(ctx context.Context, ownerUserID string, req CreateDietRequest) (*DietDTO, error) {
	days, err := s.prepareDays(ctx, &req)
	if err != nil {
		return nil, err
	}

	diet := &storage.Diet{
		OwnerUserID: ownerUserID,
		Name:        req.Name,
		Description: req.Description,
		Days:        days,
	}
	if err := s.diets.CreateDiet(ctx, diet); err != nil {
		return nil, err
	}

	s.logger.Debugw("diet created", "diet_id", diet.ID, "days", len(diet.Days))
	return toDTO(diet), nil
}

func (s *Service) GetDiet(ctx context.Context, id uuid.UUID) (*DietDTO, error) {
	diet, err := s.getDiet(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(diet), nil
}

// ListDiets lists diets newest first. An empty ownerUserID lists all diets.
func (s *Service) ListDiets(ctx context.Context, ownerUserID string, limit, offset int) ([]DietDTO, error) {
	diets, err := s.diets.ListDiets(ctx, ownerUserID, limit, offset)
	if err != nil {
		return nil, err
	}

	dtos := make([]DietDTO, 0, len(diets))
	for i := range diets {
		dtos = append(dtos, *toDTO(&diets[i]))
	}
	return dtos, nil
}

// UpdateDiet replaces a diet owned by ownerUserID.
func (s *Service) UpdateDiet(ctx context.Context, ownerUserID string, id uuid.UUID, req CreateDietRequest) (*DietDTO, error) {
	diet, err := s.getOwnedDiet(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}

	days, err := s.prepareDays(ctx, &req)
	if err != nil {
		return nil, err
	}

	diet.Name = req.Name
	diet.Description = req.Description
	diet.Days = days
	if err := s.diets.UpdateDiet(ctx, diet); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDietNotFound
		}
		return nil, err
	}
	return toDTO(diet), nil
}

func (s *Service) DeleteDiet(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	if _, err := s.getOwnedDiet(ctx, ownerUserID, id); err != nil {
		return err
	}
	if err := s.diets.DeleteDiet(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrDietNotFound
		}
		return err
	}
	return nil
}

// Summary computes the averages and the per-day displays of a diet.
func (s *Service) Summary(ctx context.Context, id uuid.UUID) (*DietSummary, error) {
	diet, err := s.getDiet(ctx, id)
	if err != nil {
		return nil, err
	}

	totals := make([]nutrition.NutrientTotals, 0, len(diet.Days))
	for _, day := range diet.Days {
		totals = append(totals, day.TotalNutrients)
	}

	summary := &DietSummary{
		DietID:           diet.ID,
		Name:             diet.Name,
		Description:      diet.Description,
		DayCount:         len(diet.Days),
		AverageNutrients: nutrition.ComputeAverages(totals),
		Days:             make([]DaySummary, 0, len(diet.Days)),
	}

	names := make(map[uuid.UUID]string)
	for _, day := range diet.Days {
		ds := DaySummary{
			DayIndex:  day.DayIndex,
			Nutrients: nutrition.DisplayTotals(day.TotalNutrients),
			Meals:     make([]MealRef, 0, len(day.MealIDs)),
		}
		for _, mealID := range day.MealIDs {
			ref, err := s.resolveMeal(ctx, mealID, names)
			if err != nil {
				return nil, err
			}
			ds.Meals = append(ds.Meals, ref)
		}
		summary.Days = append(summary.Days, ds)
	}

	return summary, nil
}

// Export renders the summary of a diet as a PDF or CSV document.
func (s *Service) Export(ctx context.Context, id uuid.UUID, format string) ([]byte, error) {
	summary, err := s.Summary(ctx, id)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatPDF:
		return generatePDF(summary)
	case FormatCSV:
		return generateCSV(summary)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
}

func (s *Service) resolveMeal(ctx context.Context, id uuid.UUID, cache map[uuid.UUID]string) (MealRef, error) {
	if name, ok := cache[id]; ok {
		return MealRef{ID: id, Name: name, Missing: name == ""}, nil
	}
	meal, err := s.meals.GetMeal(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		cache[id] = ""
		return MealRef{ID: id, Missing: true}, nil
	}
	if err != nil {
		return MealRef{}, err
	}
	cache[id] = meal.Name
	return MealRef{ID: id, Name: meal.Name}, nil
}

// prepareDays validates req and checks that every referenced meal exists.
func (s *Service) prepareDays(ctx context.Context, req *CreateDietRequest) ([]storage.DietDay, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	checked := make(map[uuid.UUID]bool)
	days := make([]storage.DietDay, 0, len(req.DietDays))
	for i, d := range req.DietDays {
		for _, mealID := range d.MealIDs {
			if checked[mealID] {
				continue
			}
			if _, err := s.meals.GetMeal(ctx, mealID); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, fmt.Errorf("%w: %s", ErrUnknownMeal, mealID)
				}
				return nil, err
			}
			checked[mealID] = true
		}
		days = append(days, storage.DietDay{
			DayIndex:       i,
			TotalNutrients: d.TotalNutrients,
			MealIDs:        d.MealIDs,
		})
	}
	return days, nil
}

func (s *Service) getDiet(ctx context.Context, id uuid.UUID) (*storage.Diet, error) {
	diet, err := s.diets.GetDiet(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDietNotFound
		}
		return nil, err
	}
	return diet, nil
}

func (s *Service) getOwnedDiet(ctx context.Context, ownerUserID string, id uuid.UUID) (*storage.Diet, error) {
	diet, err := s.getDiet(ctx, id)
	if err != nil {
		return nil, err
	}
	if diet.OwnerUserID != ownerUserID {
		return nil, ErrDietNotFound
	}
	return diet, nil
}

func toDTO(diet *storage.Diet) *DietDTO {
	dto := &DietDTO{
		ID:          diet.ID,
		OwnerUserID: diet.OwnerUserID,
		Name:        diet.Name,
		Description: diet.Description,
		DietDays:    make([]DietDayDTO, 0, len(diet.Days)),
		CreatedAt:   diet.CreatedAt,
		UpdatedAt:   diet.UpdatedAt,
	}
	for _, day := range diet.Days {
		totals := day.TotalNutrients
		if totals == nil {
			totals = nutrition.NutrientTotals{}
		}
		mealIDs := day.MealIDs
		if mealIDs == nil {
			mealIDs = []uuid.UUID{}
		}
		dto.DietDays = append(dto.DietDays, DietDayDTO{
			ID:             day.ID,
			DayIndex:       day.DayIndex,
			TotalNutrients: totals,
			MealIDs:        mealIDs,
		})
	}
	return dto
}

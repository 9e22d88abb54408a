package meals

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fdg312/meal-hub/internal/blob"
	"github.com/fdg312/meal-hub/internal/imageslots"
	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/fdg312/meal-hub/internal/tags"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMealNotFound       = errors.New("meal not found")
	ErrImageNotFound      = errors.New("meal image not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidImageUpdate = errors.New("invalid image update")
	ErrFileTooLarge       = errors.New("file too large")
	ErrUnsupportedMime    = errors.New("unsupported mime type")
)

// Options configures the meals service.
type Options struct {
	BlobStore       blob.Store // nil in local mode
	PublicBaseURL   string
	PreferPublicURL bool
	PresignTTL      int
	MaxUploadMB     int
	AllowedMimes    string // comma separated
	MaxSlots        int
	// StrictSlots rejects MaxSlots <= 0 instead of clamping it to 1.
	StrictSlots bool
	Tags        tags.Builder
	Logger      *zap.SugaredLogger
}

// Service handles meals business logic.
type Service struct {
	meals        storage.MealsStorage
	images       storage.MealImagesStorage
	blobStore    blob.Store
	urls         blob.URLResolver
	localMode    bool
	maxUploadMB  int
	allowedMimes []string
	maxSlots     int
	strictSlots  bool
	tags         tags.Builder
	logger       *zap.SugaredLogger
}

// NewService fails when the slot configuration is invalid.
func NewService(meals storage.MealsStorage, images storage.MealImagesStorage, opts Options) (*Service, error) {
	if _, err := imageslots.New(opts.MaxSlots, imageslots.Options{Strict: opts.StrictSlots}); err != nil {
		return nil, fmt.Errorf("MEAL_IMAGES_MAX_SLOTS=%d: %w", opts.MaxSlots, err)
	}

	mimes := []string{}
	for _, m := range strings.Split(opts.AllowedMimes, ",") {
		if m = strings.TrimSpace(m); m != "" {
			mimes = append(mimes, m)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Service{
		meals:     meals,
		images:    images,
		blobStore: opts.BlobStore,
		urls: blob.URLResolver{
			Store:           opts.BlobStore,
			PublicBaseURL:   opts.PublicBaseURL,
			PreferPublicURL: opts.PreferPublicURL,
			TTLSeconds:      opts.PresignTTL,
		},
		localMode:    opts.BlobStore == nil,
		maxUploadMB:  opts.MaxUploadMB,
		allowedMimes: mimes,
		maxSlots:     opts.MaxSlots,
		strictSlots:  opts.StrictSlots,
		tags:         opts.Tags,
		logger:       logger,
	}, nil
}

// CreateMeal creates a meal owned by ownerUserID.
func (s *Service) CreateMeal(ctx context.Context, ownerUserID string, req CreateMealRequest) (*MealDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	meal := &storage.Meal{
		OwnerUserID:     ownerUserID,
		Name:            req.Name,
		Description:     req.MealDescription,
		PreparationTime: strings.TrimSpace(req.PreparationTime),
		Totals: nutrition.MealTotals{
			Calories: req.TotalCalories,
			Protein:  req.TotalProtein,
			Carbs:    req.TotalCarbs,
			Fat:      req.TotalFat,
		},
		Cuisines:    req.Cuisines.Values(),
		Diets:       req.Diets.Values(),
		MealTypes:   req.MealTypes.Values(),
		Ingredients: req.MealIngredients,
	}

	if err := s.meals.CreateMeal(ctx, meal); err != nil {
		return nil, err
	}

	return s.toDTO(meal, nil), nil
}

// GetMeal returns any meal by id.
func (s *Service) GetMeal(ctx context.Context, id uuid.UUID) (*MealDTO, error) {
	meal, err := s.getMeal(ctx, id)
	if err != nil {
		return nil, err
	}
	images, err := s.images.ListMealImages(ctx, meal.ID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(meal, images), nil
}

// ListMeals lists meals matching filter.
func (s *Service) ListMeals(ctx context.Context, filter storage.MealFilter) ([]MealDTO, error) {
	meals, err := s.meals.ListMeals(ctx, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]MealDTO, 0, len(meals))
	for i := range meals {
		images, err := s.images.ListMealImages(ctx, meals[i].ID)
		if err != nil {
			return nil, err
		}
		dtos = append(dtos, *s.toDTO(&meals[i], images))
	}
	return dtos, nil
}

// UpdateMeal applies a partial update to a meal owned by ownerUserID.
func (s *Service) UpdateMeal(ctx context.Context, ownerUserID string, id uuid.UUID, req UpdateMealRequest) (*MealDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	meal, err := s.getOwnedMeal(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		meal.Name = *req.Name
	}
	if req.MealDescription != nil {
		meal.Description = *req.MealDescription
	}
	if req.PreparationTime != nil {
		meal.PreparationTime = strings.TrimSpace(*req.PreparationTime)
	}
	if req.TotalCalories != nil {
		meal.Totals.Calories = *req.TotalCalories
	}
	if req.TotalProtein != nil {
		meal.Totals.Protein = *req.TotalProtein
	}
	if req.TotalCarbs != nil {
		meal.Totals.Carbs = *req.TotalCarbs
	}
	if req.TotalFat != nil {
		meal.Totals.Fat = *req.TotalFat
	}
	if req.Cuisines != nil {
		meal.Cuisines = req.Cuisines.Values()
	}
	if req.Diets != nil {
		meal.Diets = req.Diets.Values()
	}
	if req.MealTypes != nil {
		meal.MealTypes = req.MealTypes.Values()
	}
	if req.MealIngredients != nil {
		meal.Ingredients = *req.MealIngredients
	}

	if err := s.meals.UpdateMeal(ctx, meal); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMealNotFound
		}
		return nil, err
	}

	images, err := s.images.ListMealImages(ctx, meal.ID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(meal, images), nil
}

// DeleteMeal deletes a meal with its images and their objects.
func (s *Service) DeleteMeal(ctx context.Context, ownerUserID string, id uuid.UUID) error {
	meal, err := s.getOwnedMeal(ctx, ownerUserID, id)
	if err != nil {
		return err
	}

	images, err := s.images.ListMealImages(ctx, meal.ID)
	if err != nil {
		return err
	}

	if err := s.meals.DeleteMeal(ctx, meal.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrMealNotFound
		}
		return err
	}

	s.deleteObjects(ctx, images)
	return nil
}

// CardOptions controls tag expansion on a meal card. Expanded is the
// user's toggle; ForceExpand shows every tag in views without one.
type CardOptions struct {
	Expanded    bool
	ForceExpand bool
}

// GetCard returns the display card of a meal. Tags are limited to one per
// category unless opts expands them.
func (s *Service) GetCard(ctx context.Context, id uuid.UUID, opts CardOptions) (*MealCard, error) {
	dto, err := s.GetMeal(ctx, id)
	if err != nil {
		return nil, err
	}

	totals := nutrition.MealTotals{
		Calories: dto.TotalCalories,
		Protein:  dto.TotalProtein,
		Carbs:    dto.TotalCarbs,
		Fat:      dto.TotalFat,
	}
	gramBasis := nutrition.GramBasis(dto.MealIngredients)

	card := &MealCard{
		Meal:      *dto,
		Macros:    nutrition.BuildMacroObject(totals, nutrition.NormalizeMacros(totals, gramBasis)),
		GramBasis: gramBasis,
		Tags: s.tags.Build(tags.Categories{
			Cuisines:  dto.Cuisines,
			Diets:     dto.Diets,
			MealTypes: dto.MealTypes,
		}, opts.Expanded, opts.ForceExpand),
		CuisineLabels:  tags.FormatEnums(dto.Cuisines),
		DietLabels:     tags.FormatEnums(dto.Diets),
		MealTypeLabels: tags.FormatEnums(dto.MealTypes),
	}
	for _, img := range dto.Images {
		if img.Primary {
			card.PrimaryImageURL = img.ImageURL
			break
		}
	}
	return card, nil
}

func (s *Service) getMeal(ctx context.Context, id uuid.UUID) (*storage.Meal, error) {
	meal, err := s.meals.GetMeal(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrMealNotFound
		}
		return nil, err
	}
	return meal, nil
}

// getOwnedMeal hides foreign meals behind ErrMealNotFound.
func (s *Service) getOwnedMeal(ctx context.Context, ownerUserID string, id uuid.UUID) (*storage.Meal, error) {
	meal, err := s.getMeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if meal.OwnerUserID != ownerUserID {
		return nil, ErrMealNotFound
	}
	return meal, nil
}

func (s *Service) toDTO(meal *storage.Meal, images []storage.MealImage) *MealDTO {
	dto := &MealDTO{
		ID:                 meal.ID,
		OwnerUserID:        meal.OwnerUserID,
		Name:               meal.Name,
		MealDescription:    meal.Description,
		PreparationTime:    meal.PreparationTime,
		PreparationMinutes: preparationMinutes(meal.PreparationTime),
		TotalCalories:      meal.Totals.Calories,
		TotalProtein:       meal.Totals.Protein,
		TotalCarbs:         meal.Totals.Carbs,
		TotalFat:           meal.Totals.Fat,
		Cuisines:           nonNil(meal.Cuisines),
		Diets:              nonNil(meal.Diets),
		MealTypes:          nonNil(meal.MealTypes),
		MealIngredients:    meal.Ingredients,
		Images:             make([]MealImageDTO, 0, len(images)),
		CreatedAt:          meal.CreatedAt,
		UpdatedAt:          meal.UpdatedAt,
	}
	if dto.MealIngredients == nil {
		dto.MealIngredients = []nutrition.Ingredient{}
	}
	for _, img := range images {
		dto.Images = append(dto.Images, MealImageDTO{
			ID:         img.ID,
			ImageURL:   imageURL(meal.ID, img.ID),
			OrderIndex: img.OrderIndex,
			Primary:    img.Primary,
		})
	}
	return dto
}

// imageURL is the API path that serves or redirects to the image.
func imageURL(mealID, imageID uuid.UUID) string {
	return "/v1/meals/" + mealID.String() + "/images/" + imageID.String()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

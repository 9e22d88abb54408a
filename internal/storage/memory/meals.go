package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
)

// MealsMemoryStorage: in-memory реализация MealsStorage
type MealsMemoryStorage struct {
	mu     sync.RWMutex
	meals  map[uuid.UUID]storage.Meal
	images *MealImagesMemoryStorage
}

// NewMealsMemoryStorage creates the store. images may be nil; when set,
// deleting a meal also deletes its images.
func NewMealsMemoryStorage(images *MealImagesMemoryStorage) *MealsMemoryStorage {
	return &MealsMemoryStorage{
		meals:  make(map[uuid.UUID]storage.Meal),
		images: images,
	}
}

func (s *MealsMemoryStorage) CreateMeal(ctx context.Context, meal *storage.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if meal.ID == uuid.Nil {
		meal.ID = uuid.New()
	}
	now := time.Now().UTC()
	meal.CreatedAt = now
	meal.UpdatedAt = now

	s.meals[meal.ID] = cloneMeal(*meal)
	return nil
}

func (s *MealsMemoryStorage) GetMeal(ctx context.Context, id uuid.UUID) (*storage.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meals[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	m = cloneMeal(m)
	return &m, nil
}

func (s *MealsMemoryStorage) ListMeals(ctx context.Context, filter storage.MealFilter) ([]storage.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	result := make([]storage.Meal, 0, len(s.meals))
	for _, m := range s.meals {
		if filter.OwnerUserID != "" && m.OwnerUserID != filter.OwnerUserID {
			continue
		}
		if filter.Cuisine != "" && !containsFold(m.Cuisines, filter.Cuisine) {
			continue
		}
		if filter.Diet != "" && !containsFold(m.Diets, filter.Diet) {
			continue
		}
		if filter.MealType != "" && !containsFold(m.MealTypes, filter.MealType) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(m.Name), query) {
			continue
		}
		result = append(result, cloneMeal(m))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, filter.Limit, filter.Offset), nil
}

func (s *MealsMemoryStorage) UpdateMeal(ctx context.Context, meal *storage.Meal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.meals[meal.ID]
	if !ok {
		return storage.ErrNotFound
	}

	meal.CreatedAt = existing.CreatedAt
	meal.UpdatedAt = time.Now().UTC()
	s.meals[meal.ID] = cloneMeal(*meal)
	return nil
}

func (s *MealsMemoryStorage) DeleteMeal(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.meals[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.meals, id)

	if s.images != nil {
		s.images.deleteByMeal(id)
	}
	return nil
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func cloneMeal(m storage.Meal) storage.Meal {
	m.Cuisines = slices.Clone(m.Cuisines)
	m.Diets = slices.Clone(m.Diets)
	m.MealTypes = slices.Clone(m.MealTypes)
	m.Ingredients = slices.Clone(m.Ingredients)
	if m.Ingredients == nil {
		m.Ingredients = []nutrition.Ingredient{}
	}
	return m
}

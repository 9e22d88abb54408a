package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
)

// DietsMemoryStorage: in-memory реализация DietsStorage
type DietsMemoryStorage struct {
	mu    sync.RWMutex
	diets map[uuid.UUID]storage.Diet
}

func NewDietsMemoryStorage() *DietsMemoryStorage {
	return &DietsMemoryStorage{diets: make(map[uuid.UUID]storage.Diet)}
}

func (s *DietsMemoryStorage) CreateDiet(ctx context.Context, diet *storage.Diet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if diet.ID == uuid.Nil {
		diet.ID = uuid.New()
	}
	assignDayIDs(diet.Days)

	now := time.Now().UTC()
	diet.CreatedAt = now
	diet.UpdatedAt = now

	s.diets[diet.ID] = cloneDiet(*diet)
	return nil
}

func (s *DietsMemoryStorage) GetDiet(ctx context.Context, id uuid.UUID) (*storage.Diet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.diets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	d = cloneDiet(d)
	return &d, nil
}

func (s *DietsMemoryStorage) ListDiets(ctx context.Context, ownerUserID string, limit, offset int) ([]storage.Diet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]storage.Diet, 0, len(s.diets))
	for _, d := range s.diets {
		if ownerUserID != "" && d.OwnerUserID != ownerUserID {
			continue
		}
		result = append(result, cloneDiet(d))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return paginate(result, limit, offset), nil
}

func (s *DietsMemoryStorage) UpdateDiet(ctx context.Context, diet *storage.Diet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.diets[diet.ID]
	if !ok {
		return storage.ErrNotFound
	}
	assignDayIDs(diet.Days)

	diet.CreatedAt = existing.CreatedAt
	diet.UpdatedAt = time.Now().UTC()
	s.diets[diet.ID] = cloneDiet(*diet)
	return nil
}

func (s *DietsMemoryStorage) DeleteDiet(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.diets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.diets, id)
	return nil
}

// assignDayIDs fills missing day ids and renumbers days by position.
func assignDayIDs(days []storage.DietDay) {
	for i := range days {
		if days[i].ID == uuid.Nil {
			days[i].ID = uuid.New()
		}
		days[i].DayIndex = i
	}
}

func cloneDiet(d storage.Diet) storage.Diet {
	days := make([]storage.DietDay, len(d.Days))
	for i, day := range d.Days {
		day.TotalNutrients = maps.Clone(day.TotalNutrients)
		day.MealIDs = slices.Clone(day.MealIDs)
		days[i] = day
	}
	d.Days = days
	return d
}

package memory

import (
	"github.com/fdg312/meal-hub/internal/storage"
)

// MemoryStorage: in-memory реализация storage.Storage
type MemoryStorage struct {
	meals      *MealsMemoryStorage
	mealImages *MealImagesMemoryStorage
	diets      *DietsMemoryStorage
}

// New создаёт пустой MemoryStorage
func New() *MemoryStorage {
	images := NewMealImagesMemoryStorage()
	return &MemoryStorage{
		meals:      NewMealsMemoryStorage(images),
		mealImages: images,
		diets:      NewDietsMemoryStorage(),
	}
}

func (m *MemoryStorage) Meals() storage.MealsStorage {
	return m.meals
}

func (m *MemoryStorage) MealImages() storage.MealImagesStorage {
	return m.mealImages
}

func (m *MemoryStorage) Diets() storage.DietsStorage {
	return m.diets
}

func (m *MemoryStorage) Close() error {
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

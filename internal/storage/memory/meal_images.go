package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/meal-hub/internal/storage"
	"github.com/google/uuid"
)

type imageBlob struct {
	data        []byte
	contentType string
}

// MealImagesMemoryStorage: in-memory реализация MealImagesStorage
type MealImagesMemoryStorage struct {
	mu     sync.RWMutex
	images map[uuid.UUID]storage.MealImage
	byMeal map[uuid.UUID][]uuid.UUID
	blobs  map[uuid.UUID]imageBlob
}

func NewMealImagesMemoryStorage() *MealImagesMemoryStorage {
	return &MealImagesMemoryStorage{
		images: make(map[uuid.UUID]storage.MealImage),
		byMeal: make(map[uuid.UUID][]uuid.UUID),
		blobs:  make(map[uuid.UUID]imageBlob),
	}
}

func (s *MealImagesMemoryStorage) ListMealImages(ctx context.Context, mealID uuid.UUID) ([]storage.MealImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byMeal[mealID]
	result := make([]storage.MealImage, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.images[id])
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].OrderIndex < result[j].OrderIndex })
	return result, nil
}

func (s *MealImagesMemoryStorage) GetMealImage(ctx context.Context, id uuid.UUID) (*storage.MealImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.images[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &img, nil
}

func (s *MealImagesMemoryStorage) ReplaceMealImages(ctx context.Context, mealID uuid.UUID, images []storage.MealImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[uuid.UUID]bool, len(images))
	for _, img := range images {
		keep[img.ID] = true
	}
	for _, id := range s.byMeal[mealID] {
		if !keep[id] {
			delete(s.images, id)
			delete(s.blobs, id)
		}
	}

	now := time.Now().UTC()
	ids := make([]uuid.UUID, 0, len(images))
	for _, img := range images {
		if img.ID == uuid.Nil {
			img.ID = uuid.New()
		}
		if existing, ok := s.images[img.ID]; ok {
			img.CreatedAt = existing.CreatedAt
		} else if img.CreatedAt.IsZero() {
			img.CreatedAt = now
		}
		img.MealID = mealID
		if img.Data != nil {
			s.blobs[img.ID] = imageBlob{data: img.Data, contentType: img.ContentType}
			img.Data = nil
		}
		s.images[img.ID] = img
		ids = append(ids, img.ID)
	}

	if len(ids) == 0 {
		delete(s.byMeal, mealID)
	} else {
		s.byMeal[mealID] = ids
	}
	return nil
}

func (s *MealImagesMemoryStorage) GetMealImageBlob(ctx context.Context, imageID uuid.UUID) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[imageID]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return b.data, b.contentType, nil
}

func (s *MealImagesMemoryStorage) deleteByMeal(mealID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byMeal[mealID] {
		delete(s.images, id)
		delete(s.blobs, id)
	}
	delete(s.byMeal, mealID)
}

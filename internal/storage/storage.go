package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/google/uuid"
)

// ErrNotFound is returned by every storage when a row does not exist.
var ErrNotFound = errors.New("not found")

// Meal: рецепт пользователя
type Meal struct {
	ID              uuid.UUID
	OwnerUserID     string
	Name            string
	Description     string
	PreparationTime string // ISO-8601 duration, e.g. PT45M
	Totals          nutrition.MealTotals
	Cuisines        []string
	Diets           []string
	MealTypes       []string
	Ingredients     []nutrition.Ingredient
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MealFilter: фильтры списка блюд. Пустые поля не фильтруют.
type MealFilter struct {
	OwnerUserID string
	Cuisine     string
	Diet        string
	MealType    string
	Query       string // substring of name, case-insensitive
	Limit       int
	Offset      int
}

// MealsStorage: интерфейс для работы с блюдами
type MealsStorage interface {
	CreateMeal(ctx context.Context, meal *Meal) error
	GetMeal(ctx context.Context, id uuid.UUID) (*Meal, error)
	// ListMeals returns meals newest first.
	ListMeals(ctx context.Context, filter MealFilter) ([]Meal, error)
	UpdateMeal(ctx context.Context, meal *Meal) error
	// DeleteMeal also removes the meal's images.
	DeleteMeal(ctx context.Context, id uuid.UUID) error
}

// MealImage: изображение блюда в слоте OrderIndex
type MealImage struct {
	ID          uuid.UUID
	MealID      uuid.UUID
	OrderIndex  int
	Primary     bool
	ObjectKey   *string // S3 object key (nil in local mode)
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time

	// Data carries new image bytes in local blob mode. It is written together
	// with the row and never read back into this field.
	Data []byte
}

// MealImagesStorage: интерфейс для работы с изображениями блюд
type MealImagesStorage interface {
	// ListMealImages returns images ordered by OrderIndex.
	ListMealImages(ctx context.Context, mealID uuid.UUID) ([]MealImage, error)
	GetMealImage(ctx context.Context, id uuid.UUID) (*MealImage, error)

	// ReplaceMealImages makes images the complete image set of the meal.
	// Images missing from the set are deleted together with their blobs, and
	// images with Data get their blob stored in the same write.
	ReplaceMealImages(ctx context.Context, mealID uuid.UUID, images []MealImage) error

	// GetMealImageBlob returns image bytes stored in local blob mode.
	GetMealImageBlob(ctx context.Context, imageID uuid.UUID) ([]byte, string, error)
}

// DietDay: один день диеты
type DietDay struct {
	ID             uuid.UUID
	DayIndex       int
	TotalNutrients nutrition.NutrientTotals
	MealIDs        []uuid.UUID
}

// Diet: план питания из упорядоченных дней
type Diet struct {
	ID          uuid.UUID
	OwnerUserID string
	Name        string
	Description string
	Days        []DietDay
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DietsStorage: интерфейс для работы с диетами
type DietsStorage interface {
	CreateDiet(ctx context.Context, diet *Diet) error
	GetDiet(ctx context.Context, id uuid.UUID) (*Diet, error)
	// ListDiets returns diets newest first. Empty ownerUserID lists every diet.
	ListDiets(ctx context.Context, ownerUserID string, limit, offset int) ([]Diet, error)
	// UpdateDiet replaces the descriptive fields and the full day list.
	UpdateDiet(ctx context.Context, diet *Diet) error
	DeleteDiet(ctx context.Context, id uuid.UUID) error
}

// Storage: полный набор хранилищ приложения
type Storage interface {
	Meals() MealsStorage
	MealImages() MealImagesStorage
	Diets() DietsStorage

	// Close закрывает соединение (для Postgres)
	Close() error
}

package meals

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/fdg312/meal-hub/internal/tags"
	"github.com/google/uuid"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 5000
	maxIngredients       = 100
)

type MealImageDTO struct {
	ID         uuid.UUID `json:"id"`
	ImageURL   string    `json:"imageUrl"`
	OrderIndex int       `json:"orderIndex"`
	Primary    bool      `json:"primary"`
}

type MealDTO struct {
	ID                 uuid.UUID              `json:"id"`
	OwnerUserID        string                 `json:"ownerUserId"`
	Name               string                 `json:"name"`
	MealDescription    string                 `json:"mealDescription"`
	PreparationTime    string                 `json:"preparationTime"`
	PreparationMinutes *int                   `json:"preparationMinutes"`
	TotalCalories      float64                `json:"totalCalories"`
	TotalProtein       float64                `json:"totalProtein"`
	TotalCarbs         float64                `json:"totalCarbs"`
	TotalFat           float64                `json:"totalFat"`
	Cuisines           []string               `json:"cuisines"`
	Diets              []string               `json:"diets"`
	MealTypes          []string               `json:"mealTypes"`
	MealIngredients    []nutrition.Ingredient `json:"mealIngredients"`
	Images             []MealImageDTO         `json:"images"`
	CreatedAt          time.Time              `json:"createdAt"`
	UpdatedAt          time.Time              `json:"updatedAt"`
}

type MealsResponse struct {
	Meals []MealDTO `json:"meals"`
}

// MealCard is a meal with every display-ready value derived from it.
type MealCard struct {
	Meal            MealDTO                      `json:"meal"`
	Macros          nutrition.MacroDisplayObject `json:"macros"`
	GramBasis       float64                      `json:"gramBasis"`
	Tags            tags.Result                  `json:"tags"`
	CuisineLabels   []string                     `json:"cuisineLabels"`
	DietLabels      []string                     `json:"dietLabels"`
	MealTypeLabels  []string                     `json:"mealTypeLabels"`
	PrimaryImageURL string                       `json:"primaryImageUrl,omitempty"`
}

type CreateMealRequest struct {
	Name            string                 `json:"name"`
	MealDescription string                 `json:"mealDescription"`
	PreparationTime string                 `json:"preparationTime"`
	TotalCalories   float64                `json:"totalCalories"`
	TotalProtein    float64                `json:"totalProtein"`
	TotalCarbs      float64                `json:"totalCarbs"`
	TotalFat        float64                `json:"totalFat"`
	Cuisines        tags.StringList        `json:"cuisines"`
	Diets           tags.StringList        `json:"diets"`
	MealTypes       tags.StringList        `json:"mealTypes"`
	MealIngredients []nutrition.Ingredient `json:"mealIngredients"`
}

// UpdateMealRequest is a partial update; nil fields are left unchanged.
type UpdateMealRequest struct {
	Name            *string                 `json:"name"`
	MealDescription *string                 `json:"mealDescription"`
	PreparationTime *string                 `json:"preparationTime"`
	TotalCalories   *float64                `json:"totalCalories"`
	TotalProtein    *float64                `json:"totalProtein"`
	TotalCarbs      *float64                `json:"totalCarbs"`
	TotalFat        *float64                `json:"totalFat"`
	Cuisines        *tags.StringList        `json:"cuisines"`
	Diets           *tags.StringList        `json:"diets"`
	MealTypes       *tags.StringList        `json:"mealTypes"`
	MealIngredients *[]nutrition.Ingredient `json:"mealIngredients"`
}

func (r *CreateMealRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("name is required")
	}
	if len(r.Name) > maxNameLength {
		return errors.New("name is too long")
	}
	if len(r.MealDescription) > maxDescriptionLength {
		return errors.New("mealDescription is too long")
	}
	if err := validatePreparationTime(r.PreparationTime); err != nil {
		return err
	}
	if err := validateTotals(r.TotalCalories, r.TotalProtein, r.TotalCarbs, r.TotalFat); err != nil {
		return err
	}
	return validateIngredients(r.MealIngredients)
}

func (r *UpdateMealRequest) Validate() error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return errors.New("name must not be empty")
		}
		if len(name) > maxNameLength {
			return errors.New("name is too long")
		}
		r.Name = &name
	}
	if r.MealDescription != nil && len(*r.MealDescription) > maxDescriptionLength {
		return errors.New("mealDescription is too long")
	}
	if r.PreparationTime != nil {
		if err := validatePreparationTime(*r.PreparationTime); err != nil {
			return err
		}
	}
	for _, v := range []*float64{r.TotalCalories, r.TotalProtein, r.TotalCarbs, r.TotalFat} {
		if v != nil {
			if err := validateTotals(*v); err != nil {
				return err
			}
		}
	}
	if r.MealIngredients != nil {
		return validateIngredients(*r.MealIngredients)
	}
	return nil
}

func validateTotals(values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.New("totals must be non-negative numbers")
		}
	}
	return nil
}

func validateIngredients(ingredients []nutrition.Ingredient) error {
	if len(ingredients) > maxIngredients {
		return errors.New("too many ingredients")
	}
	for _, ing := range ingredients {
		if strings.TrimSpace(ing.FoodItemName) == "" {
			return errors.New("ingredient foodItemName is required")
		}
		if math.IsNaN(ing.Quantity) || math.IsInf(ing.Quantity, 0) || ing.Quantity < 0 {
			return errors.New("ingredient quantity must be a non-negative number")
		}
	}
	return nil
}

type MealImagesResponse struct {
	Images []MealImageDTO `json:"images"`
}

package diets

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/google/uuid"
)

const (
	maxNameLength        = 200
	maxDescriptionLength = 5000
	maxDays              = 90
	maxMealsPerDay       = 20
)

// Export formats
const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

// DietDayDTO is one day of a diet.
type DietDayDTO struct {
	ID             uuid.UUID                `json:"id"`
	DayIndex       int                      `json:"dayIndex"`
	TotalNutrients nutrition.NutrientTotals `json:"totalNutrients"`
	MealIDs        []uuid.UUID              `json:"mealIds"`
}

type DietDTO struct {
	ID          uuid.UUID    `json:"id"`
	OwnerUserID string       `json:"ownerUserId"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	DietDays    []DietDayDTO `json:"dietDays"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type DietsResponse struct {
	Diets []DietDTO `json:"diets"`
}

// MealRef is a meal reference resolved to its name. Missing is set when the
// meal was deleted after the diet was saved.
type MealRef struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Missing bool      `json:"missing,omitempty"`
}

type DaySummary struct {
	DayIndex  int                         `json:"dayIndex"`
	Nutrients []nutrition.NutrientDisplay `json:"nutrients"`
	Meals     []MealRef                   `json:"meals"`
}

// DietSummary is the display-ready view of a diet. AverageNutrients is null
// for a diet without days.
type DietSummary struct {
	DietID           uuid.UUID                   `json:"dietId"`
	Name             string                      `json:"name"`
	Description      string                      `json:"description"`
	DayCount         int                         `json:"dayCount"`
	AverageNutrients *nutrition.AverageNutrients `json:"averageNutrients"`
	Days             []DaySummary                `json:"days"`
}

type DietDayRequest struct {
	TotalNutrients nutrition.NutrientTotals `json:"totalNutrients"`
	MealIDs        []uuid.UUID              `json:"mealIds"`
}

// CreateDietRequest is also the body of PUT /v1/diets/{id}, which replaces
// the whole diet.
type CreateDietRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	DietDays    []DietDayRequest `json:"dietDays"`
}

func (r *CreateDietRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("name is required")
	}
	if len(r.Name) > maxNameLength {
		return errors.New("name is too long")
	}
	if len(r.Description) > maxDescriptionLength {
		return errors.New("description is too long")
	}
	if len(r.DietDays) > maxDays {
		return fmt.Errorf("at most %d dietDays allowed", maxDays)
	}
	for i, day := range r.DietDays {
		if len(day.MealIDs) > maxMealsPerDay {
			return fmt.Errorf("dietDays[%d]: at most %d meals allowed", i, maxMealsPerDay)
		}
		for key, amount := range day.TotalNutrients {
			if strings.TrimSpace(key) == "" {
				return fmt.Errorf("dietDays[%d]: empty nutrient name", i)
			}
			if amount.Value < 0 || math.IsNaN(amount.Value) || math.IsInf(amount.Value, 0) {
				return fmt.Errorf("dietDays[%d]: invalid value for %q", i, key)
			}
		}
	}
	return nil
}

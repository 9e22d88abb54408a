package nutrition

import "math"

// MealTotals holds absolute macro totals for a whole meal.
type MealTotals struct {
	Calories float64 `json:"totalCalories"`
	Protein  float64 `json:"totalProtein"`
	Carbs    float64 `json:"totalCarbs"`
	Fat      float64 `json:"totalFat"`
}

// Ingredient is a meal ingredient with its quantity in grams.
type Ingredient struct {
	FoodItemName string  `json:"foodItemName"`
	Quantity     float64 `json:"quantity"`
}

// Per100g holds unrounded per-100-gram macro values.
type Per100g struct {
	Calories float64 `json:"caloriesPer100g"`
	Protein  float64 `json:"proteinPer100g"`
	Carbs    float64 `json:"carbsPer100g"`
	Fats     float64 `json:"fatsPer100g"`
}

// GramBasis is the total weight of a meal: the sum of its ingredient
// quantities. Non-finite and negative quantities are skipped.
func GramBasis(ingredients []Ingredient) float64 {
	var sum float64
	for _, ing := range ingredients {
		q := ing.Quantity
		if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
			continue
		}
		sum += q
	}
	return sum
}

// NormalizeMacros scales totals to 100 g of the meal. A gram basis that is
// zero, negative or not finite yields all zeros.
func NormalizeMacros(totals MealTotals, gramBasis float64) Per100g {
	if gramBasis <= 0 || math.IsNaN(gramBasis) || math.IsInf(gramBasis, 0) {
		return Per100g{}
	}
	scale := func(total float64) float64 {
		return total * 100 / gramBasis
	}
	return Per100g{
		Calories: scale(totals.Calories),
		Protein:  scale(totals.Protein),
		Carbs:    scale(totals.Carbs),
		Fats:     scale(totals.Fat),
	}
}

// NormalizeMacrosPtr is NormalizeMacros for an optional gram basis; nil is
// treated as zero.
func NormalizeMacrosPtr(totals MealTotals, gramBasis *float64) Per100g {
	if gramBasis == nil {
		return Per100g{}
	}
	return NormalizeMacros(totals, *gramBasis)
}

// MacroValue is one row of a MacroDisplayObject.
type MacroValue struct {
	Total   int    `json:"total"`
	Per100g int    `json:"per100g"`
	Unit    string `json:"unit"`
}

// MacroDisplayObject is the display-ready macro breakdown of a meal.
type MacroDisplayObject struct {
	Calories MacroValue `json:"Calories"`
	Protein  MacroValue `json:"Protein"`
	Carbs    MacroValue `json:"Carbs"`
	Fats     MacroValue `json:"Fats"`
}

// BuildMacroObject rounds totals and per-100g values half-up to integers.
func BuildMacroObject(totals MealTotals, per100g Per100g) MacroDisplayObject {
	return MacroDisplayObject{
		Calories: MacroValue{Total: roundHalfUp(totals.Calories), Per100g: roundHalfUp(per100g.Calories), Unit: "kcal"},
		Protein:  MacroValue{Total: roundHalfUp(totals.Protein), Per100g: roundHalfUp(per100g.Protein), Unit: "g"},
		Carbs:    MacroValue{Total: roundHalfUp(totals.Carbs), Per100g: roundHalfUp(per100g.Carbs), Unit: "g"},
		Fats:     MacroValue{Total: roundHalfUp(totals.Fat), Per100g: roundHalfUp(per100g.Fats), Unit: "g"},
	}
}

// MacrosForMeal normalizes and builds in one step.
func MacrosForMeal(totals MealTotals, ingredients []Ingredient) MacroDisplayObject {
	return BuildMacroObject(totals, NormalizeMacros(totals, GramBasis(ingredients)))
}

func roundHalfUp(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int(math.Floor(v + 0.5))
}

package nutrition

import (
	"math"
	"testing"
)

func TestNormalizeMacros_ZeroBasis(t *testing.T) {
	totals := MealTotals{Calories: 500, Protein: 30, Carbs: 60, Fat: 15}

	for _, basis := range []float64{0, -10, math.NaN(), math.Inf(1)} {
		if got := NormalizeMacros(totals, basis); got != (Per100g{}) {
			t.Errorf("basis %v: expected all zeros, got %+v", basis, got)
		}
	}

	if got := NormalizeMacrosPtr(totals, nil); got != (Per100g{}) {
		t.Errorf("nil basis: expected all zeros, got %+v", got)
	}
}

func TestNormalizeMacros_Scaling(t *testing.T) {
	basis := 250.0
	got := NormalizeMacrosPtr(MealTotals{Calories: 200, Protein: 20, Carbs: 50, Fat: 10}, &basis)

	if got.Calories != 80 {
		t.Errorf("expected caloriesPer100g=80, got %v", got.Calories)
	}
	if got.Protein != 8 || got.Carbs != 20 || got.Fats != 4 {
		t.Errorf("unexpected per100g values: %+v", got)
	}
}

func TestBuildMacroObject_RoundsHalfUp(t *testing.T) {
	obj := BuildMacroObject(
		MealTotals{Calories: 412.5, Protein: 33.6, Carbs: 10.49, Fat: 2.5},
		Per100g{Calories: 206.25, Protein: 16.8, Carbs: 5.2, Fats: 1.25},
	)

	if obj.Protein.Total != 34 || obj.Protein.Per100g != 17 {
		t.Errorf("expected protein 34/17, got %d/%d", obj.Protein.Total, obj.Protein.Per100g)
	}
	if obj.Calories.Total != 413 {
		t.Errorf("expected 412.5 to round up to 413, got %d", obj.Calories.Total)
	}
	if obj.Carbs.Total != 10 {
		t.Errorf("expected carbs 10, got %d", obj.Carbs.Total)
	}
	if obj.Fats.Total != 3 || obj.Fats.Per100g != 1 {
		t.Errorf("expected fats 3/1, got %d/%d", obj.Fats.Total, obj.Fats.Per100g)
	}
	if obj.Calories.Unit != "kcal" || obj.Protein.Unit != "g" || obj.Carbs.Unit != "g" || obj.Fats.Unit != "g" {
		t.Errorf("unexpected units: %+v", obj)
	}
}

func TestMacrosForMeal_UsesIngredientWeight(t *testing.T) {
	ingredients := []Ingredient{
		{FoodItemName: "Rice", Quantity: 150},
		{FoodItemName: "Chicken", Quantity: 100},
		{FoodItemName: "Broken", Quantity: -5},
	}
	if basis := GramBasis(ingredients); basis != 250 {
		t.Fatalf("expected gram basis 250, got %v", basis)
	}

	obj := MacrosForMeal(MealTotals{Calories: 200}, ingredients)
	if obj.Calories.Per100g != 80 || obj.Calories.Total != 200 {
		t.Errorf("unexpected calories: %+v", obj.Calories)
	}

	empty := MacrosForMeal(MealTotals{Calories: 200}, nil)
	if empty.Calories.Per100g != 0 {
		t.Errorf("expected 0 per100g without ingredients, got %d", empty.Calories.Per100g)
	}
}

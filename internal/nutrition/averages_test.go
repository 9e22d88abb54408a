package nutrition

import "testing"

func TestComputeAverages_Empty(t *testing.T) {
	if got := ComputeAverages(nil); got != nil {
		t.Errorf("expected nil for nil days, got %+v", got)
	}
	if got := ComputeAverages([]NutrientTotals{}); got != nil {
		t.Errorf("expected nil for empty days, got %+v", got)
	}
}

func TestComputeAverages_Mean(t *testing.T) {
	days := []NutrientTotals{
		{KeyEnergy: {Value: 2000, UnitName: "kcal"}},
		{KeyEnergy: {Value: 2400, UnitName: "kcal"}, KeyProtein: {Value: 0}},
	}

	got := ComputeAverages(days)
	if got == nil {
		t.Fatal("expected averages")
	}
	if got.AvgCalories != 2200.0 {
		t.Errorf("expected avgCalories=2200, got %v", got.AvgCalories)
	}
	if got.AvgProtein != 0 || got.AvgFat != 0 || got.AvgCarbs != 0 {
		t.Errorf("expected zero for absent nutrients, got %+v", got)
	}
}

func TestComputeAverages_MissingNutrientCountsAsZero(t *testing.T) {
	days := []NutrientTotals{
		{KeyProtein: {Value: 101}, KeyFat: {Value: 60}, KeyCarbs: {Value: 250}},
		{KeyFat: {Value: 70}, KeyCarbs: {Value: 200}},
		nil,
	}

	got := ComputeAverages(days)
	if got.AvgProtein != 33.7 {
		t.Errorf("expected 101/3 rounded to 33.7, got %v", got.AvgProtein)
	}
	if got.AvgFat != 43.3 {
		t.Errorf("expected 130/3 rounded to 43.3, got %v", got.AvgFat)
	}
	if got.AvgCarbs != 150 {
		t.Errorf("expected 150, got %v", got.AvgCarbs)
	}
}

func TestComputeAverages_OrderIndependent(t *testing.T) {
	a := NutrientTotals{KeyEnergy: {Value: 1850.5}, KeyCarbs: {Value: 210.2}}
	b := NutrientTotals{KeyEnergy: {Value: 2210.25}, KeyCarbs: {Value: 190.9}}
	c := NutrientTotals{KeyEnergy: {Value: 1999.75}}

	first := ComputeAverages([]NutrientTotals{a, b, c})
	second := ComputeAverages([]NutrientTotals{c, a, b})
	if *first != *second {
		t.Errorf("expected order-independent result, got %+v vs %+v", first, second)
	}
}

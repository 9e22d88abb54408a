package nutrition

import "math"

// AverageNutrients holds per-day macro means, each rounded to one decimal.
type AverageNutrients struct {
	AvgCalories float64 `json:"avgCalories"`
	AvgProtein  float64 `json:"avgProtein"`
	AvgFat      float64 `json:"avgFat"`
	AvgCarbs    float64 `json:"avgCarbs"`
}

// ComputeAverages averages the canonical macros across days. It returns nil
// when there are no days, which callers render as an empty state. A day
// without a given nutrient contributes 0 for it.
func ComputeAverages(days []NutrientTotals) *AverageNutrients {
	if len(days) == 0 {
		return nil
	}

	var calories, protein, fat, carbs float64
	for _, day := range days {
		calories += day.Value(KeyEnergy)
		protein += day.Value(KeyProtein)
		fat += day.Value(KeyFat)
		carbs += day.Value(KeyCarbs)
	}

	n := float64(len(days))
	return &AverageNutrients{
		AvgCalories: roundOneDecimal(calories / n),
		AvgProtein:  roundOneDecimal(protein / n),
		AvgFat:      roundOneDecimal(fat / n),
		AvgCarbs:    roundOneDecimal(carbs / n),
	}
}

func roundOneDecimal(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Floor(v*10+0.5) / 10
}

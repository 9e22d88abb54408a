package diets

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/fdg312/meal-hub/internal/nutrition"
	"github.com/jung-kurt/gofpdf"
)

const noData = "No data"

// generatePDF renders the averages table followed by one row per day.
// Core fonts only cover cp1252, so text goes through the unicode translator.
func generatePDF(summary *DietSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(summary.Name, true)
	pdf.SetCreator("meal-hub", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(summary.Name))
	pdf.Ln(10)

	if summary.Description != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(summary.Description), "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Average per day")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	avg := summary.AverageNutrients
	rows := [][2]string{
		{"Calories", formatAverage(avg, func(a *nutrition.AverageNutrients) float64 { return a.AvgCalories }, "kcal")},
		{"Protein", formatAverage(avg, func(a *nutrition.AverageNutrients) float64 { return a.AvgProtein }, "g")},
		{"Fat", formatAverage(avg, func(a *nutrition.AverageNutrients) float64 { return a.AvgFat }, "g")},
		{"Carbs", formatAverage(avg, func(a *nutrition.AverageNutrients) float64 { return a.AvgCarbs }, "g")},
	}
	for _, row := range rows {
		pdf.CellFormat(40, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, fmt.Sprintf("Days (%d)", summary.DayCount))
	pdf.Ln(8)

	drawDaysTable(pdf, summary, tr)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func drawDaysTable(pdf *gofpdf.Fpdf, summary *DietSummary, tr func(string) string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(12, 6, "Day", "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 6, "kcal", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 6, "Protein", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 6, "Fat", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 6, "Carbs", "1", 0, "C", true, 0, "")
	pdf.CellFormat(96, 6, "Meals", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if len(summary.Days) == 0 {
		pdf.CellFormat(190, 6, noData, "1", 1, "C", false, 0, "")
		return
	}

	for _, day := range summary.Days {
		values := dayValues(day)
		pdf.CellFormat(12, 6, strconv.Itoa(day.DayIndex+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(22, 6, values[0], "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, values[1], "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, values[2], "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, values[3], "1", 0, "R", false, 0, "")

		meals := tr(mealNames(day.Meals))
		if w := pdf.GetStringWidth(meals); w > 94 {
			for len(meals) > 0 && pdf.GetStringWidth(meals+"...") > 94 {
				meals = meals[:len(meals)-1]
			}
			meals += "..."
		}
		pdf.CellFormat(96, 6, meals, "1", 1, "L", false, 0, "")
	}
}

// generateCSV writes one row per day with the canonical macros and meal names.
func generateCSV(summary *DietSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"day", "calories_kcal", "protein_g", "fat_g", "carbs_g", "meals"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, day := range summary.Days {
		values := dayValues(day)
		row := []string{strconv.Itoa(day.DayIndex + 1), values[0], values[1], values[2], values[3], mealNames(day.Meals)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// dayValues returns calories, protein, fat and carbs of a day, formatted.
func dayValues(day DaySummary) [4]string {
	var out [4]string
	keys := [4]string{nutrition.KeyEnergy, nutrition.KeyProtein, nutrition.KeyFat, nutrition.KeyCarbs}
	for i, key := range keys {
		for _, n := range day.Nutrients {
			if n.Key == key {
				out[i] = strconv.FormatFloat(n.Value, 'f', 1, 64)
				break
			}
		}
	}
	return out
}

func mealNames(meals []MealRef) string {
	names := make([]string, 0, len(meals))
	for _, m := range meals {
		if m.Missing {
			names = append(names, "(deleted meal)")
			continue
		}
		names = append(names, m.Name)
	}
	return strings.Join(names, "; ")
}

func formatAverage(avg *nutrition.AverageNutrients, field func(*nutrition.AverageNutrients) float64, unit string) string {
	if avg == nil {
		return noData
	}
	return fmt.Sprintf("%.1f %s", field(avg), unit)
}

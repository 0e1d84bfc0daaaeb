package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"energy-optimizer/internal/optimization/application"
	optimization "energy-optimizer/internal/optimization/domain"
)

var recommendationHeader = []string{
	"priority",
	"lever",
	"action",
	"estimated_savings_kwh",
	"estimated_savings_cost",
	"confidence",
	"applicable_period",
	"schedule",
	"ramp_days",
}

type summaryRow struct {
	label string
	value string
}

func summaryRows(report *application.OptimizationReport) []summaryRow {
	result := report.Result
	return []summaryRow{
		{"Dataset", report.DatasetID},
		{"Source", report.Source},
		{"Generated", report.GeneratedAt.Format(time.RFC3339)},
		{"Baseline (kWh)", formatFloat(result.BaselineKWh, 2)},
		{"Target reduction", formatFloat(result.TargetFraction, 4)},
		{"Time horizon (days)", strconv.Itoa(result.TimeHorizonDays)},
		{"Required reduction (kWh)", formatFloat(result.RequiredReductionKWh, 2)},
		{"Achievable reduction (kWh)", formatFloat(result.AchievableReductionKWh, 2)},
		{"Planned reduction (kWh)", formatFloat(result.PlannedReductionKWh, 2)},
		{"Shortfall (kWh)", formatFloat(result.ShortfallKWh, 2)},
		{"Target achievable", strconv.FormatBool(result.TargetAchievable)},
		{"Cost per kWh", formatFloat(result.CostPerKWh, 4)},
		{"Estimated savings (cost)", formatFloat(result.EstimatedSavingsCost, 2)},
	}
}

func recommendationRow(rec optimization.Recommendation) []string {
	schedule, ramp := "", ""
	if rec.Pacing != nil {
		schedule = string(rec.Pacing.Schedule)
		ramp = strconv.Itoa(rec.Pacing.RampDays)
	}
	return []string{
		strconv.Itoa(rec.Priority),
		string(rec.Lever),
		rec.Action,
		formatFloat(rec.EstimatedSavingsKWh, 2),
		formatFloat(rec.EstimatedSavingsCost, 2),
		formatFloat(rec.Confidence, 2),
		string(rec.ApplicablePeriod),
		schedule,
		ramp,
	}
}

// BuildOptimizationCSV renders a Metric,Value summary followed by the recommendation table.
func BuildOptimizationCSV(report *application.OptimizationReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report export: nil report")
	}
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"Metric", "Value"})
	for _, row := range summaryRows(report) {
		_ = writer.Write([]string{row.label, row.value})
	}
	_ = writer.Write(nil)
	_ = writer.Write(recommendationHeader)
	for _, rec := range report.Result.Recommendations {
		_ = writer.Write(recommendationRow(rec))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOptimizationPDF renders a one-page plan.
func BuildOptimizationPDF(report *application.OptimizationReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report export: nil report")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Optimization Plan")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, row := range summaryRows(report) {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %s", row.label, row.value))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(10, 6, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(32, 6, "Lever", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Savings (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(28, 6, "Savings (cost)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Confidence", "1", 0, "C", false, 0, "")
	pdf.CellFormat(36, 6, "Period", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Ramp (days)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, rec := range report.Result.Recommendations {
		row := recommendationRow(rec)
		pdf.CellFormat(10, 6, row[0], "1", 0, "C", false, 0, "")
		pdf.CellFormat(32, 6, row[1], "1", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, row[3], "1", 0, "R", false, 0, "")
		pdf.CellFormat(28, 6, row[4], "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 6, row[5], "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, row[6], "1", 0, "L", false, 0, "")
		pdf.CellFormat(24, 6, row[8], "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(report.Result.Recommendations) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Actions")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		for _, rec := range report.Result.Recommendations {
			pdf.MultiCell(0, 5, fmt.Sprintf("%d. %s", rec.Priority, rec.Action), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildOptimizationXLSX renders summary and recommendations sheets.
func BuildOptimizationXLSX(report *application.OptimizationReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report export: nil report")
	}
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	recsSheet := "recommendations"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(recsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Energy Optimization Plan")
	for i, row := range summaryRows(report) {
		r := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", r), row.label)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", r), row.value)
	}

	for i, title := range recommendationHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(recsSheet, cell, title)
	}
	for i, rec := range report.Result.Recommendations {
		r := i + 2
		_ = f.SetCellValue(recsSheet, fmt.Sprintf("A%d", r), rec.Priority)
		_ = f.SetCellValue(recsSheet, fmt.Sprintf("B%d", r), string(rec.Lever))
		_ = f.SetCellValue(recsSheet, fmt.Sprintf("C%d", r), rec.Action)
		_ = f.SetCellValue(recsSheet, fmt.Sprintf("D%d", r), rec.EstimatedSavingsKWh)
		_ = f.SetCellValue(recsSheet, fmt.Sprintf("E%d", r), rec.EstimatedSavingsCost)
		_ = f.SetCellValue(recsSheet, fmt.Sprintf("F%d", r), rec.Confidence)
		_ = f.SetCellValue(recsSheet, fmt.Sprintf("G%d", r), string(rec.ApplicablePeriod))
		if rec.Pacing != nil {
			_ = f.SetCellValue(recsSheet, fmt.Sprintf("H%d", r), string(rec.Pacing.Schedule))
			_ = f.SetCellValue(recsSheet, fmt.Sprintf("I%d", r), rec.Pacing.RampDays)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(value float64, prec int) string {
	return strconv.FormatFloat(value, 'f', prec, 64)
}

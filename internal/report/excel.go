package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/csv-profiler/backend/internal/models"
)

// WriteWorkbook writes report.xlsx with Overview, Numeric and Categorical
// sheets.
func (w *Writer) WriteWorkbook(summary models.DatasetSummary, numeric []models.NumericProfile, categorical []models.CategoricalProfile) error {
	f := excelize.NewFile()
	defer f.Close()

	const overview = "Overview"
	if err := f.SetSheetName("Sheet1", overview); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Rows", summary.Rows},
		{"Columns", summary.Columns},
		{"Total missing", summary.TotalMissing},
		{"Total missing %", summary.TotalMissingPct},
		{"Memory (bytes)", summary.MemoryBytes},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(overview, cell, &row); err != nil {
			return fmt.Errorf("writing overview row: %w", err)
		}
	}

	if len(numeric) > 0 {
		if _, err := f.NewSheet("Numeric"); err != nil {
			return fmt.Errorf("creating numeric sheet: %w", err)
		}
		header := []interface{}{"column", "count", "mean", "std", "min", "p25", "median", "p75", "p95", "max", "missing", "missing_pct", "skew", "kurtosis", "outliers"}
		if err := f.SetSheetRow("Numeric", "A1", &header); err != nil {
			return fmt.Errorf("writing numeric header: %w", err)
		}
		for i, p := range numeric {
			row := []interface{}{p.Column, p.Count, p.Mean, p.Std, p.Min, p.P25, p.Median, p.P75, p.P95, p.Max, p.Missing, p.MissingPct, p.Skew, p.Kurtosis, p.Outliers}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow("Numeric", cell, &row); err != nil {
				return fmt.Errorf("writing numeric row: %w", err)
			}
		}
	}

	if len(categorical) > 0 {
		if _, err := f.NewSheet("Categorical"); err != nil {
			return fmt.Errorf("creating categorical sheet: %w", err)
		}
		header := []interface{}{"column", "unique", "top", "freq", "missing", "missing_pct"}
		if err := f.SetSheetRow("Categorical", "A1", &header); err != nil {
			return fmt.Errorf("writing categorical header: %w", err)
		}
		for i, p := range categorical {
			row := []interface{}{p.Column, p.Unique, p.Top, p.Freq, p.Missing, p.MissingPct}
			cell, _ := excelize.CoordinatesToCellName(1, i+2)
			if err := f.SetSheetRow("Categorical", cell, &row); err != nil {
				return fmt.Errorf("writing categorical row: %w", err)
			}
		}
	}

	if err := f.SaveAs(filepath.Join(w.dir, FileWorkbook)); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

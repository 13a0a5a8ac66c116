// Package report writes the per-analysis output bundle: cleaned data,
// summaries, the cleaning log, an Excel workbook, and the final ZIP archive.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
	"github.com/csv-profiler/backend/internal/stats"
)

// Artifact file names inside an analysis output directory.
const (
	FileOriginal    = "original_data.csv"
	FileCleaned     = "cleaned_data.csv"
	FileNumeric     = "numeric_summary.csv"
	FileCategorical = "categorical_summary.csv"
	FileCorrelation = "correlation_matrix.csv"
	FileCleaningLog = "cleaning_log.csv"
	FileSummary     = "summary_report.txt"
	FileWorkbook    = "report.xlsx"
	PlotsDir        = "plots"
)

// Writer writes artifacts into one analysis output directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory for an analysis under outputsDir.
// Directory names are uuid-based so repeated uploads never collide.
func NewWriter(outputsDir, analysisID string) (*Writer, error) {
	dir := filepath.Join(outputsDir, "analysis_"+analysisID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the absolute output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// PlotsPath returns the directory charts are rendered into.
func (w *Writer) PlotsPath() string {
	return filepath.Join(w.dir, PlotsDir)
}

// CopyOriginal copies the uploaded file into the bundle unchanged.
func (w *Writer) CopyOriginal(srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("opening uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(w.dir, FileOriginal))
	if err != nil {
		return fmt.Errorf("creating %s: %w", FileOriginal, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copying original data: %w", err)
	}
	return nil
}

// WriteCleaned writes the cleaned dataset as CSV.
func (w *Writer) WriteCleaned(ds *dataset.Dataset) error {
	return w.writeCSV(FileCleaned, func(cw *csv.Writer) error {
		if err := cw.Write(ds.ColumnNames()); err != nil {
			return err
		}
		row := make([]string, len(ds.Columns))
		for i := 0; i < ds.Rows; i++ {
			for j, col := range ds.Columns {
				row[j] = col.CellString(i)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteNumericSummary writes the numeric column profiles as CSV.
func (w *Writer) WriteNumericSummary(profiles []models.NumericProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	return w.writeCSV(FileNumeric, func(cw *csv.Writer) error {
		header := []string{"column", "count", "mean", "std", "min", "p25", "median", "p75", "p95", "max", "missing", "missing_pct", "skew", "kurtosis", "outliers"}
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, p := range profiles {
			row := []string{
				p.Column,
				strconv.Itoa(p.Count),
				formatStat(p.Mean),
				formatStat(p.Std),
				formatStat(p.Min),
				formatStat(p.P25),
				formatStat(p.Median),
				formatStat(p.P75),
				formatStat(p.P95),
				formatStat(p.Max),
				strconv.Itoa(p.Missing),
				formatStat(p.MissingPct),
				formatStat(p.Skew),
				formatStat(p.Kurtosis),
				strconv.Itoa(p.Outliers),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCategoricalSummary writes the categorical column profiles as CSV.
func (w *Writer) WriteCategoricalSummary(profiles []models.CategoricalProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	return w.writeCSV(FileCategorical, func(cw *csv.Writer) error {
		if err := cw.Write([]string{"column", "unique", "top", "freq", "missing", "missing_pct"}); err != nil {
			return err
		}
		for _, p := range profiles {
			row := []string{
				p.Column,
				strconv.Itoa(p.Unique),
				p.Top,
				strconv.Itoa(p.Freq),
				strconv.Itoa(p.Missing),
				formatStat(p.MissingPct),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCorrelation writes the correlation matrix as CSV. A nil matrix writes
// nothing.
func (w *Writer) WriteCorrelation(m *stats.CorrelationMatrix) error {
	if m == nil {
		return nil
	}
	return w.writeCSV(FileCorrelation, func(cw *csv.Writer) error {
		header := append([]string{""}, m.Columns...)
		if err := cw.Write(header); err != nil {
			return err
		}
		for i, name := range m.Columns {
			row := make([]string, 0, len(m.Columns)+1)
			row = append(row, name)
			for _, v := range m.Values[i] {
				row = append(row, formatStat(v))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCleaningLog writes every cleaning action as CSV.
func (w *Writer) WriteCleaningLog(actions []models.CleaningAction) error {
	return w.writeCSV(FileCleaningLog, func(cw *csv.Writer) error {
		if err := cw.Write([]string{"column", "row", "original", "new_value", "operation", "reason"}); err != nil {
			return err
		}
		for _, a := range actions {
			row := []string{
				a.Column,
				strconv.Itoa(a.Row),
				a.Original,
				a.NewValue,
				string(a.Operation),
				a.Reason,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSummaryReport writes the human-readable summary text file.
func (w *Writer) WriteSummaryReport(summary models.DatasetSummary, numeric []models.NumericProfile, categorical []models.CategoricalProfile, actionCount int) error {
	f, err := os.Create(filepath.Join(w.dir, FileSummary))
	if err != nil {
		return fmt.Errorf("creating %s: %w", FileSummary, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "Data Analysis Summary\n")
	fmt.Fprintf(f, "%s\n", divider())
	fmt.Fprintf(f, "Shape: %d rows x %d columns\n", summary.Rows, summary.Columns)
	fmt.Fprintf(f, "Total missing values: %d (%.2f%%)\n", summary.TotalMissing, summary.TotalMissingPct)
	fmt.Fprintf(f, "Memory estimate: %.2f MB\n", float64(summary.MemoryBytes)/(1024*1024))
	fmt.Fprintf(f, "Cleaning actions applied: %d\n\n", actionCount)

	fmt.Fprintf(f, "Column types:\n")
	names := make([]string, 0, len(summary.Types))
	for name := range summary.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(f, "  %-30s %s\n", name, summary.Types[name])
	}

	if len(numeric) > 0 {
		fmt.Fprintf(f, "\nNumeric Columns:\n")
		for _, p := range numeric {
			fmt.Fprintf(f, "  %s: count=%d mean=%s std=%s min=%s median=%s max=%s missing=%d outliers=%d\n",
				p.Column, p.Count, formatStat(p.Mean), formatStat(p.Std),
				formatStat(p.Min), formatStat(p.Median), formatStat(p.Max),
				p.Missing, p.Outliers)
		}
	}

	if len(categorical) > 0 {
		fmt.Fprintf(f, "\nCategorical Columns:\n")
		for _, p := range categorical {
			fmt.Fprintf(f, "  %s: unique=%d top=%q freq=%d missing=%d\n",
				p.Column, p.Unique, p.Top, p.Freq, p.Missing)
		}
	}

	return nil
}

// Artifacts lists the data artifacts (everything except charts) present in
// the output directory, sorted by name.
func (w *Writer) Artifacts() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("listing output directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (w *Writer) writeCSV(name string, fill func(*csv.Writer) error) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := fill(cw); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", name, err)
	}
	return nil
}

func formatStat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func divider() string {
	b := make([]byte, 50)
	for i := range b {
		b[i] = '='
	}
	return string(b)
}

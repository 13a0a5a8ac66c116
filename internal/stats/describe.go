// Package stats computes descriptive statistics over a cleaned dataset.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
)

// Describe profiles every column of the dataset. Missing counts reflect the
// state before imputation, so callers should capture them from the cleaning
// result; here they come from the preCleanMissing map (column -> count).
func Describe(ds *dataset.Dataset, preCleanMissing map[string]int, outliers map[string]int) ([]models.NumericProfile, []models.CategoricalProfile) {
	var numeric []models.NumericProfile
	var categorical []models.CategoricalProfile

	for _, col := range ds.Columns {
		missing := preCleanMissing[col.Name]
		missingPct := 0.0
		if ds.Rows > 0 {
			missingPct = float64(missing) / float64(ds.Rows) * 100
		}

		switch col.Type {
		case models.ColumnNumeric:
			p := describeNumeric(col)
			p.Missing = missing
			p.MissingPct = missingPct
			p.Outliers = outliers[col.Name]
			numeric = append(numeric, p)

		case models.ColumnCategorical, models.ColumnBoolean:
			p := describeCategorical(col)
			p.Missing = missing
			p.MissingPct = missingPct
			categorical = append(categorical, p)
		}
	}

	return numeric, categorical
}

func describeNumeric(col *dataset.Column) models.NumericProfile {
	vals := col.ValidFloats()
	p := models.NumericProfile{Column: col.Name, Count: len(vals)}
	if len(vals) == 0 {
		return p
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	p.Mean = stat.Mean(vals, nil)
	if len(vals) > 1 {
		p.Std = stat.StdDev(vals, nil)
	}
	p.Min = sorted[0]
	p.Max = sorted[len(sorted)-1]
	p.P25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	p.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p.P75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	p.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	// Skew and kurtosis divide by the standard deviation, so a constant
	// column would yield NaN and break JSON encoding of the profile.
	if len(vals) > 2 && p.Std > 0 {
		p.Skew = stat.Skew(vals, nil)
	}
	if len(vals) > 3 && p.Std > 0 {
		p.Kurtosis = stat.ExKurtosis(vals, nil)
	}
	return p
}

func describeCategorical(col *dataset.Column) models.CategoricalProfile {
	counts := make(map[string]int)
	for i, v := range col.Raw {
		if col.Missing[i] {
			continue
		}
		counts[v]++
	}

	p := models.CategoricalProfile{Column: col.Name, Unique: len(counts)}
	for v, n := range counts {
		if n > p.Freq || (n == p.Freq && v < p.Top) {
			p.Top = v
			p.Freq = n
		}
	}
	return p
}

// MedianOf returns the median of vals. vals must be non-empty.
func MedianOf(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// UniqueCount returns the number of distinct non-missing values in a column.
func UniqueCount(col *dataset.Column) int {
	seen := make(map[string]struct{})
	for i, v := range col.Raw {
		if col.Missing[i] {
			continue
		}
		if col.Type == models.ColumnNumeric {
			v = dataset.FormatFloat(col.Floats[i])
		}
		seen[v] = struct{}{}
	}
	return len(seen)
}

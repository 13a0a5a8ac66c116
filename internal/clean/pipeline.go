// Package clean implements the fixed data-cleaning pipeline: type coercion,
// missing-value imputation, and outlier flagging. Every mutation is recorded
// as a CleaningAction so the bundle can include a full cleaning log.
package clean

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/csv-profiler/backend/internal/config"
	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
	"github.com/csv-profiler/backend/internal/stats"
)

// Result holds the outcome of running the pipeline over a dataset. The
// dataset itself is mutated in place.
type Result struct {
	Actions  []models.CleaningAction
	Outliers map[string]int // numeric column -> flagged value count
	Missing  map[string]int // column -> missing cells before imputation (after coercion)
}

// Run executes the pipeline stages in order: coercion, numeric imputation,
// categorical imputation, outlier flagging.
func Run(ds *dataset.Dataset, pipe config.PipelineConfig) *Result {
	res := &Result{
		Outliers: make(map[string]int),
		Missing:  make(map[string]int),
	}

	for _, col := range ds.Columns {
		coerceColumn(col, pipe, res)
	}
	for _, col := range ds.Columns {
		res.Missing[col.Name] = col.MissingCount()
	}
	for _, col := range ds.NumericColumns() {
		imputeNumeric(col, res)
	}
	for _, col := range ds.CategoricalColumns() {
		imputeCategorical(col, res)
	}
	for _, col := range ds.NumericColumns() {
		flagOutliers(col, pipe.OutlierIQRFactor, res)
	}

	return res
}

// coerceColumn infers the column type and parses raw values into typed
// storage. Values that fail to parse under the inferred type become missing
// and are picked up by the imputation stages.
func coerceColumn(col *dataset.Column, pipe config.PipelineConfig, res *Result) {
	col.Type = dataset.InferType(col, pipe.NumericThreshold, pipe.DateLayouts)

	switch col.Type {
	case models.ColumnNumeric:
		col.Floats = make([]float64, len(col.Raw))
		for i, v := range col.Raw {
			if col.Missing[i] {
				continue
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				col.Missing[i] = true
				res.Actions = append(res.Actions, models.CleaningAction{
					Column:    col.Name,
					Row:       i,
					Original:  v,
					NewValue:  "",
					Operation: models.OpNumericCoercion,
					Reason:    "value not parseable as number",
				})
				continue
			}
			col.Floats[i] = f
		}

	case models.ColumnDatetime:
		layout := dataset.DetectDateLayout(col, pipe.DateLayouts)
		col.Times = make([]time.Time, len(col.Raw))
		for i, v := range col.Raw {
			if col.Missing[i] {
				continue
			}
			t, err := time.Parse(layout, strings.TrimSpace(v))
			if err != nil {
				col.Missing[i] = true
				res.Actions = append(res.Actions, models.CleaningAction{
					Column:    col.Name,
					Row:       i,
					Original:  v,
					NewValue:  "",
					Operation: models.OpDatetimeCoercion,
					Reason:    "value not parseable as date",
				})
				continue
			}
			col.Times[i] = t
		}

	case models.ColumnBoolean:
		col.Bools = make([]bool, len(col.Raw))
		for i, v := range col.Raw {
			if col.Missing[i] {
				continue
			}
			b, _ := dataset.ParseBool(v)
			col.Bools[i] = b
		}
	}
}

// imputeNumeric fills missing numeric cells with the column median.
func imputeNumeric(col *dataset.Column, res *Result) {
	valid := col.ValidFloats()
	if len(valid) == 0 {
		return
	}

	median := stats.MedianOf(valid)
	for i := range col.Raw {
		if !col.Missing[i] {
			continue
		}
		original := col.Raw[i]
		col.Floats[i] = median
		col.Missing[i] = false
		res.Actions = append(res.Actions, models.CleaningAction{
			Column:    col.Name,
			Row:       i,
			Original:  original,
			NewValue:  dataset.FormatFloat(median),
			Operation: models.OpMedianImputation,
			Reason:    "missing value filled with column median",
		})
	}
}

// imputeCategorical fills missing categorical/boolean cells with the mode.
func imputeCategorical(col *dataset.Column, res *Result) {
	mode, ok := Mode(col)
	if !ok {
		return
	}

	for i := range col.Raw {
		if !col.Missing[i] {
			continue
		}
		original := col.Raw[i]
		col.Raw[i] = mode
		if col.Type == models.ColumnBoolean {
			b, _ := dataset.ParseBool(mode)
			col.Bools[i] = b
		}
		col.Missing[i] = false
		res.Actions = append(res.Actions, models.CleaningAction{
			Column:    col.Name,
			Row:       i,
			Original:  original,
			NewValue:  mode,
			Operation: models.OpModeImputation,
			Reason:    "missing value filled with column mode",
		})
	}
}

// flagOutliers marks numeric values outside the IQR fence. Values are never
// removed; they are counted and logged.
func flagOutliers(col *dataset.Column, factor float64, res *Result) {
	valid := col.ValidFloats()
	if len(valid) < 4 {
		return
	}

	sorted := append([]float64(nil), valid...)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := q3 - q1
	lo := q1 - factor*iqr
	hi := q3 + factor*iqr

	count := 0
	for i, v := range col.Floats {
		if col.Missing[i] {
			continue
		}
		if v < lo || v > hi {
			count++
			res.Actions = append(res.Actions, models.CleaningAction{
				Column:    col.Name,
				Row:       i,
				Original:  dataset.FormatFloat(v),
				NewValue:  dataset.FormatFloat(v),
				Operation: models.OpOutlierFlag,
				Reason:    fmt.Sprintf("outside IQR fence [%s, %s]", dataset.FormatFloat(lo), dataset.FormatFloat(hi)),
			})
		}
	}
	if count > 0 {
		res.Outliers[col.Name] = count
	}
}

// Mode returns the most frequent non-missing raw value of a column. Ties
// break toward the lexicographically smaller value for determinism.
func Mode(col *dataset.Column) (string, bool) {
	counts := make(map[string]int)
	for i, v := range col.Raw {
		if col.Missing[i] {
			continue
		}
		counts[v]++
	}
	if len(counts) == 0 {
		return "", false
	}

	best := ""
	bestCount := -1
	for v, n := range counts {
		if n > bestCount || (n == bestCount && v < best) {
			best = v
			bestCount = n
		}
	}
	return best, true
}

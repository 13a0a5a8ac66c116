package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/csv-profiler/backend/internal/dataset"
)

// CorrelationMatrix holds a Pearson correlation matrix over the numeric
// columns of a dataset.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // Values[i][j] = corr(Columns[i], Columns[j])
}

// Correlate computes the pairwise Pearson correlation of all numeric columns.
// Returns nil when fewer than minColumns numeric columns exist. Imputation has
// already run, so columns have no missing cells and equal length.
func Correlate(ds *dataset.Dataset, minColumns int) *CorrelationMatrix {
	cols := ds.NumericColumns()
	if len(cols) < minColumns {
		return nil
	}

	m := &CorrelationMatrix{
		Columns: make([]string, len(cols)),
		Values:  make([][]float64, len(cols)),
	}
	for i, c := range cols {
		m.Columns[i] = c.Name
		m.Values[i] = make([]float64, len(cols))
	}

	for i := range cols {
		m.Values[i][i] = 1
		for j := i + 1; j < len(cols); j++ {
			r := stat.Correlation(cols[i].Floats, cols[j].Floats, nil)
			// A zero-variance column has no defined correlation; report 0
			// instead of NaN so the matrix stays JSON-encodable.
			if math.IsNaN(r) {
				r = 0
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

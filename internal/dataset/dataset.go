// Package dataset loads uploaded CSV files into a typed, column-oriented
// in-memory representation used by the cleaning and profiling pipeline.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"

	"github.com/csv-profiler/backend/internal/models"
)

// Typed load errors surfaced as 422 responses at the HTTP edge.
var (
	ErrEmptyFile  = errors.New("file is empty or contains no data")
	ErrNoColumns  = errors.New("file has no columns")
	ErrNoRows     = errors.New("file has no data rows")
	ErrAllMissing = errors.New("file contains no values, every cell is a missing marker")
	ErrMalformed  = errors.New("file could not be parsed as CSV")
)

// Column is a single dataset column. Raw always holds the original cell text;
// Floats/Times/Bools are populated once the cleaning pipeline coerces the
// column to its inferred type.
type Column struct {
	Name    string
	Type    models.ColumnType
	Raw     []string
	Missing []bool
	Floats  []float64
	Times   []time.Time
	Bools   []bool
}

// Dataset is a loaded CSV file.
type Dataset struct {
	Name    string
	Columns []*Column
	Rows    int
}

// Load reads a CSV file into a Dataset. Content is decoded as UTF-8, falling
// back to Latin-1 when the bytes are not valid UTF-8.
func Load(r io.Reader, name string, missingMarkers []string) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		data = decoded
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Error() != nil {
		// gota reports a header-only file as an empty dataframe.
		if strings.Contains(df.Error().Error(), "empty DataFrame") {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, df.Error())
	}
	if df.Ncol() == 0 {
		return nil, ErrNoColumns
	}
	if df.Nrow() == 0 {
		return nil, ErrNoRows
	}

	missing := make(map[string]struct{}, len(missingMarkers))
	for _, m := range missingMarkers {
		missing[m] = struct{}{}
	}

	ds := &Dataset{
		Name:    name,
		Rows:    df.Nrow(),
		Columns: make([]*Column, 0, df.Ncol()),
	}

	missingCells := 0
	for _, colName := range df.Names() {
		records := df.Col(colName).Records()
		col := &Column{
			Name:    colName,
			Type:    models.ColumnCategorical,
			Raw:     records,
			Missing: make([]bool, len(records)),
		}
		for i, v := range records {
			if _, ok := missing[v]; ok {
				col.Missing[i] = true
				missingCells++
			}
		}
		ds.Columns = append(ds.Columns, col)
	}

	// A file whose every cell is a missing marker has nothing to profile.
	if missingCells == ds.Rows*len(ds.Columns) {
		return nil, ErrAllMissing
	}

	return ds, nil
}

// Column returns the column with the given name, or nil.
func (d *Dataset) Column(name string) *Column {
	for _, c := range d.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// NumericColumns returns the columns coerced to numeric.
func (d *Dataset) NumericColumns() []*Column {
	var cols []*Column
	for _, c := range d.Columns {
		if c.Type == models.ColumnNumeric {
			cols = append(cols, c)
		}
	}
	return cols
}

// CategoricalColumns returns the columns that remained categorical or boolean.
func (d *Dataset) CategoricalColumns() []*Column {
	var cols []*Column
	for _, c := range d.Columns {
		if c.Type == models.ColumnCategorical || c.Type == models.ColumnBoolean {
			cols = append(cols, c)
		}
	}
	return cols
}

// MissingCount returns the number of missing cells in the column.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// ValidFloats returns the non-missing numeric values of a numeric column.
func (c *Column) ValidFloats() []float64 {
	vals := make([]float64, 0, len(c.Floats))
	for i, v := range c.Floats {
		if !c.Missing[i] {
			vals = append(vals, v)
		}
	}
	return vals
}

// CellString renders the cell at row i as text for output files. Coerced
// columns render their typed value; missing cells render empty.
func (c *Column) CellString(i int) string {
	if c.Missing[i] {
		return ""
	}
	switch c.Type {
	case models.ColumnNumeric:
		return FormatFloat(c.Floats[i])
	case models.ColumnDatetime:
		return FormatTime(c.Times[i])
	case models.ColumnBoolean:
		if c.Bools[i] {
			return "true"
		}
		return "false"
	default:
		return c.Raw[i]
	}
}

// FormatFloat renders a float without trailing zero noise.
func FormatFloat(v float64) string {
	if v == float64(int64(v)) && v < 1e15 && v > -1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// FormatTime renders a timestamp as a date when it has no time component.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// MemoryEstimate returns an approximate in-memory footprint in bytes.
func (d *Dataset) MemoryEstimate() int64 {
	var total int64
	for _, c := range d.Columns {
		for _, v := range c.Raw {
			total += int64(len(v)) + 16
		}
		total += int64(len(c.Missing))
		total += int64(len(c.Floats)) * 8
		total += int64(len(c.Times)) * 24
		total += int64(len(c.Bools))
	}
	return total
}

// Summary builds the dataset-level summary.
func (d *Dataset) Summary() models.DatasetSummary {
	totalCells := d.Rows * len(d.Columns)
	totalMissing := 0
	types := make(map[string]models.ColumnType, len(d.Columns))
	for _, c := range d.Columns {
		totalMissing += c.MissingCount()
		types[c.Name] = c.Type
	}

	pct := 0.0
	if totalCells > 0 {
		pct = float64(totalMissing) / float64(totalCells) * 100
	}

	return models.DatasetSummary{
		Rows:            d.Rows,
		Columns:         len(d.Columns),
		TotalMissing:    totalMissing,
		TotalMissingPct: pct,
		MemoryBytes:     d.MemoryEstimate(),
		Types:           types,
	}
}

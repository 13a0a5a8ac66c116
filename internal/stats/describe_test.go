package stats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
)

func numericColumn(name string, vals []float64) *dataset.Column {
	raw := make([]string, len(vals))
	for i, v := range vals {
		raw[i] = dataset.FormatFloat(v)
	}
	return &dataset.Column{
		Name:    name,
		Type:    models.ColumnNumeric,
		Raw:     raw,
		Missing: make([]bool, len(vals)),
		Floats:  vals,
	}
}

func categoricalColumn(name string, vals []string) *dataset.Column {
	return &dataset.Column{
		Name:    name,
		Type:    models.ColumnCategorical,
		Raw:     vals,
		Missing: make([]bool, len(vals)),
	}
}

func TestDescribeNumeric(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "t",
		Rows:    5,
		Columns: []*dataset.Column{numericColumn("v", []float64{10, 20, 30, 40, 50})},
	}

	numeric, categorical := Describe(ds, map[string]int{"v": 2}, map[string]int{"v": 1})
	require.Len(t, numeric, 1)
	assert.Empty(t, categorical)

	p := numeric[0]
	assert.Equal(t, "v", p.Column)
	assert.Equal(t, 5, p.Count)
	assert.Equal(t, 30.0, p.Mean)
	assert.Equal(t, 10.0, p.Min)
	assert.Equal(t, 50.0, p.Max)
	assert.Equal(t, 30.0, p.Median)
	assert.Equal(t, 2, p.Missing)
	assert.InDelta(t, 40.0, p.MissingPct, 0.001)
	assert.Equal(t, 1, p.Outliers)
	assert.LessOrEqual(t, p.P25, p.Median)
	assert.LessOrEqual(t, p.Median, p.P75)
	assert.LessOrEqual(t, p.P75, p.P95)
}

func TestDescribeCategorical(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "t",
		Rows:    4,
		Columns: []*dataset.Column{categoricalColumn("c", []string{"a", "b", "a", "a"})},
	}

	numeric, categorical := Describe(ds, map[string]int{}, map[string]int{})
	assert.Empty(t, numeric)
	require.Len(t, categorical, 1)

	p := categorical[0]
	assert.Equal(t, "c", p.Column)
	assert.Equal(t, 2, p.Unique)
	assert.Equal(t, "a", p.Top)
	assert.Equal(t, 3, p.Freq)
}

func TestDescribeEmptyNumericColumn(t *testing.T) {
	col := &dataset.Column{
		Name:    "v",
		Type:    models.ColumnNumeric,
		Raw:     []string{""},
		Missing: []bool{true},
		Floats:  []float64{0},
	}
	ds := &dataset.Dataset{Name: "t", Rows: 1, Columns: []*dataset.Column{col}}

	numeric, _ := Describe(ds, map[string]int{"v": 1}, nil)
	require.Len(t, numeric, 1)
	assert.Equal(t, 0, numeric[0].Count)
	assert.Equal(t, 0.0, numeric[0].Mean)
}

func TestDescribeNumericConstantColumn(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "t",
		Rows:    4,
		Columns: []*dataset.Column{numericColumn("v", []float64{5, 5, 5, 5})},
	}

	numeric, _ := Describe(ds, nil, nil)
	require.Len(t, numeric, 1)

	p := numeric[0]
	assert.Equal(t, 5.0, p.Mean)
	assert.Equal(t, 0.0, p.Std)
	assert.Equal(t, 0.0, p.Skew)
	assert.Equal(t, 0.0, p.Kurtosis)

	_, err := json.Marshal(p)
	assert.NoError(t, err)
}

func TestDescribeNumericSingleValue(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "t",
		Rows:    1,
		Columns: []*dataset.Column{numericColumn("v", []float64{42})},
	}

	numeric, _ := Describe(ds, nil, nil)
	require.Len(t, numeric, 1)

	p := numeric[0]
	assert.Equal(t, 42.0, p.Mean)
	assert.Equal(t, 0.0, p.Std)
	assert.Equal(t, 42.0, p.Min)
	assert.Equal(t, 42.0, p.Max)

	_, err := json.Marshal(p)
	assert.NoError(t, err)
}

func TestMedianOf(t *testing.T) {
	assert.Equal(t, 20.0, MedianOf([]float64{30, 10, 20}))
	assert.Equal(t, 2.0, MedianOf([]float64{1, 2, 3, 4}))
	assert.Equal(t, 7.0, MedianOf([]float64{7}))
}

func TestUniqueCount(t *testing.T) {
	col := numericColumn("v", []float64{1, 2, 2, 3})
	assert.Equal(t, 3, UniqueCount(col))

	cat := categoricalColumn("c", []string{"x", "x", "y"})
	assert.Equal(t, 2, UniqueCount(cat))
}

func TestCorrelate(t *testing.T) {
	a := numericColumn("a", []float64{1, 2, 3, 4})
	b := numericColumn("b", []float64{2, 4, 6, 8})
	c := numericColumn("c", []float64{4, 3, 2, 1})
	ds := &dataset.Dataset{Name: "t", Rows: 4, Columns: []*dataset.Column{a, b, c}}

	m := Correlate(ds, 2)
	require.NotNil(t, m)
	assert.Equal(t, []string{"a", "b", "c"}, m.Columns)

	assert.InDelta(t, 1.0, m.Values[0][0], 1e-9)
	assert.InDelta(t, 1.0, m.Values[0][1], 1e-9, "perfect positive correlation")
	assert.InDelta(t, -1.0, m.Values[0][2], 1e-9, "perfect negative correlation")
	assert.Equal(t, m.Values[0][1], m.Values[1][0], "matrix is symmetric")
}

func TestCorrelateConstantColumn(t *testing.T) {
	a := numericColumn("a", []float64{1, 1, 1, 1})
	b := numericColumn("b", []float64{2, 3, 4, 5})
	ds := &dataset.Dataset{Name: "t", Rows: 4, Columns: []*dataset.Column{a, b}}

	m := Correlate(ds, 2)
	require.NotNil(t, m)
	assert.Equal(t, 0.0, m.Values[0][1], "zero-variance column correlates as 0")
	assert.Equal(t, 0.0, m.Values[1][0])
	assert.Equal(t, 1.0, m.Values[0][0])

	_, err := json.Marshal(m)
	assert.NoError(t, err)
}

func TestCorrelateTooFewColumns(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "t",
		Rows:    3,
		Columns: []*dataset.Column{numericColumn("a", []float64{1, 2, 3})},
	}
	assert.Nil(t, Correlate(ds, 2))
}

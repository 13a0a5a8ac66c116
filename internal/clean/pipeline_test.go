package clean

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csv-profiler/backend/internal/config"
	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
)

func loadTestDataset(t *testing.T, csvData string) *dataset.Dataset {
	t.Helper()
	pipe := config.DefaultPipeline()
	ds, err := dataset.Load(strings.NewReader(csvData), "test.csv", pipe.MissingMarkers)
	require.NoError(t, err)
	return ds
}

func TestRunNumericCoercion(t *testing.T) {
	// "oops" fails to parse in an otherwise numeric column, so it becomes
	// missing and is then imputed with the median.
	ds := loadTestDataset(t, "v\n10\n20\n30\n40\noops\n")

	res := Run(ds, config.DefaultPipeline())

	col := ds.Column("v")
	assert.Equal(t, models.ColumnNumeric, col.Type)
	assert.Equal(t, 1, res.Missing["v"])
	assert.Equal(t, 0, col.MissingCount(), "imputation fills every missing cell")

	var coercions, imputations int
	for _, a := range res.Actions {
		switch a.Operation {
		case models.OpNumericCoercion:
			coercions++
			assert.Equal(t, "oops", a.Original)
		case models.OpMedianImputation:
			imputations++
		}
	}
	assert.Equal(t, 1, coercions)
	assert.Equal(t, 1, imputations)
}

func TestRunMedianImputation(t *testing.T) {
	ds := loadTestDataset(t, "v\n10\n20\n30\nNA\n")

	Run(ds, config.DefaultPipeline())

	col := ds.Column("v")
	require.Equal(t, models.ColumnNumeric, col.Type)
	assert.Equal(t, 20.0, col.Floats[3], "missing cell gets the median")
	assert.False(t, col.Missing[3])
}

func TestRunModeImputation(t *testing.T) {
	ds := loadTestDataset(t, "color\nred\nred\nblue\nNA\n")

	res := Run(ds, config.DefaultPipeline())

	col := ds.Column("color")
	assert.Equal(t, models.ColumnCategorical, col.Type)
	assert.Equal(t, "red", col.Raw[3])
	assert.False(t, col.Missing[3])

	found := false
	for _, a := range res.Actions {
		if a.Operation == models.OpModeImputation {
			found = true
			assert.Equal(t, "NA", a.Original)
			assert.Equal(t, "red", a.NewValue)
		}
	}
	assert.True(t, found)
}

func TestModeTieBreak(t *testing.T) {
	col := &dataset.Column{
		Name:    "c",
		Raw:     []string{"b", "a", "b", "a"},
		Missing: make([]bool, 4),
	}

	mode, ok := Mode(col)
	require.True(t, ok)
	assert.Equal(t, "a", mode, "ties break toward the smaller value")
}

func TestModeAllMissing(t *testing.T) {
	col := &dataset.Column{
		Name:    "c",
		Raw:     []string{"", ""},
		Missing: []bool{true, true},
	}

	_, ok := Mode(col)
	assert.False(t, ok)
}

func TestRunDatetimeCoercion(t *testing.T) {
	ds := loadTestDataset(t, "day\n2024-01-01\n2024-06-15\n2024-12-31\n")

	Run(ds, config.DefaultPipeline())

	col := ds.Column("day")
	require.Equal(t, models.ColumnDatetime, col.Type)
	assert.Equal(t, 2024, col.Times[0].Year())
	assert.Equal(t, 15, col.Times[1].Day())
}

func TestRunBooleanCoercion(t *testing.T) {
	ds := loadTestDataset(t, "flag\ntrue\nfalse\nyes\nno\n")

	Run(ds, config.DefaultPipeline())

	col := ds.Column("flag")
	require.Equal(t, models.ColumnBoolean, col.Type)
	assert.Equal(t, []bool{true, false, true, false}, col.Bools)
}

func TestRunOutlierFlagging(t *testing.T) {
	// 1000 sits far outside the IQR fence of the remaining values.
	ds := loadTestDataset(t, "v\n10\n11\n12\n13\n14\n15\n1000\n")

	res := Run(ds, config.DefaultPipeline())

	assert.Equal(t, 1, res.Outliers["v"])

	col := ds.Column("v")
	assert.Equal(t, 7, len(col.Floats), "outliers are flagged, never removed")

	var flagged []models.CleaningAction
	for _, a := range res.Actions {
		if a.Operation == models.OpOutlierFlag {
			flagged = append(flagged, a)
		}
	}
	require.Len(t, flagged, 1)
	assert.Equal(t, "1000", flagged[0].Original)
	assert.Equal(t, flagged[0].Original, flagged[0].NewValue)
}

func TestRunNoOutliersOnTinyColumns(t *testing.T) {
	ds := loadTestDataset(t, "v\n1\n2\n100\n")

	res := Run(ds, config.DefaultPipeline())
	assert.Empty(t, res.Outliers)
}

func TestRunMissingSnapshotPrecedesImputation(t *testing.T) {
	ds := loadTestDataset(t, "v,c\n1,x\nNA,NA\n3,x\n4,y\n")

	res := Run(ds, config.DefaultPipeline())

	// Missing counts reflect the state before imputation.
	assert.Equal(t, 1, res.Missing["v"])
	assert.Equal(t, 1, res.Missing["c"])

	// After the run, nothing is missing.
	for _, col := range ds.Columns {
		assert.Zero(t, col.MissingCount(), col.Name)
	}
}

package preview

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csv-profiler/backend/internal/config"
	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
)

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	csvData := "name,score\nAlice,10\nBob,20\nCara,30\nDan,40\nEve,50\n"
	ds, err := dataset.Load(strings.NewReader(csvData), "t.csv", config.DefaultPipeline().MissingMarkers)
	require.NoError(t, err)

	score := ds.Column("score")
	score.Type = models.ColumnNumeric
	score.Floats = []float64{10, 20, 30, 40, 50}
	return ds
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), "preview-test", testDataset(t))
	if err != nil {
		t.Skipf("preview store unavailable: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRows(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, []string{"name", "score"}, s.Columns())
	assert.Equal(t, 5, s.Len())

	rows, total, err := s.Rows(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alice", rows[0][0])
	assert.Equal(t, "Bob", rows[1][0])

	// Second page continues where the first left off.
	rows, _, err = s.Rows(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Cara", rows[0][0])
}

func TestStoreRowsLastPage(t *testing.T) {
	s := newTestStore(t)

	rows, total, err := s.Rows(context.Background(), 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, rows, 1)
}

func TestStoreDistinctCounts(t *testing.T) {
	s := newTestStore(t)

	counts, err := s.DistinctCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, counts["name"])
	assert.Equal(t, 5, counts["score"])
}

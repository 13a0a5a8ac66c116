// Package preview provides a DuckDB-backed row store for cleaned datasets so
// the results page can page through rows without keeping every dataset in
// process memory.
package preview

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/csv-profiler/backend/internal/dataset"
	"github.com/csv-profiler/backend/internal/models"
)

// Store holds the cleaned rows of one analysis in a temporary DuckDB file.
type Store struct {
	db      *sql.DB
	dbPath  string
	columns []string
	types   []models.ColumnType
	rows    int
}

// NewStore creates the store under tempDir and loads the cleaned dataset.
func NewStore(tempDir, analysisID string, ds *dataset.Dataset) (*Store, error) {
	dbPath := filepath.Join(tempDir, fmt.Sprintf("analysis_%s.duckdb", analysisID))

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	s := &Store{
		db:      db,
		dbPath:  dbPath,
		columns: ds.ColumnNames(),
		rows:    ds.Rows,
	}
	for _, col := range ds.Columns {
		s.types = append(s.types, col.Type)
	}

	if err := s.createTable(ds); err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, err
	}
	if err := s.loadRows(ds); err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, err
	}
	return s, nil
}

func (s *Store) createTable(ds *dataset.Dataset) error {
	defs := make([]string, 0, len(ds.Columns)+1)
	defs = append(defs, "row_idx INTEGER NOT NULL")
	for _, col := range ds.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(col.Name), sqlType(col.Type)))
	}

	stmt := fmt.Sprintf("CREATE TABLE rows (%s)", strings.Join(defs, ", "))
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("creating rows table: %w", err)
	}
	return nil
}

func (s *Store) loadRows(ds *dataset.Dataset) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	placeholders := make([]string, len(ds.Columns)+1)
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO rows VALUES (%s)", strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(ds.Columns)+1)
	for i := 0; i < ds.Rows; i++ {
		args[0] = i
		for j, col := range ds.Columns {
			args[j+1] = cellValue(col, i)
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rows: %w", err)
	}
	return nil
}

func cellValue(col *dataset.Column, i int) interface{} {
	if col.Missing[i] {
		return nil
	}
	switch col.Type {
	case models.ColumnNumeric:
		return col.Floats[i]
	case models.ColumnDatetime:
		return col.Times[i]
	case models.ColumnBoolean:
		return col.Bools[i]
	default:
		return col.Raw[i]
	}
}

// Columns returns the column names in dataset order.
func (s *Store) Columns() []string {
	return s.columns
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	return s.rows
}

// Rows returns one page of cleaned rows rendered as text, plus the total row
// count. Pages are 1-based.
func (s *Store) Rows(ctx context.Context, page, pageSize int) ([][]string, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	cols := make([]string, len(s.columns))
	for i, c := range s.columns {
		cols[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("SELECT %s FROM rows ORDER BY row_idx LIMIT ? OFFSET ?", strings.Join(cols, ", "))

	rows, err := s.db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		raw := make([]interface{}, len(s.columns))
		ptrs := make([]interface{}, len(s.columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, 0, fmt.Errorf("scanning row: %w", err)
		}

		rec := make([]string, len(s.columns))
		for i, v := range raw {
			rec[i] = renderValue(v)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rows: %w", err)
	}
	return out, s.rows, nil
}

// DistinctCounts returns the number of distinct values per column.
func (s *Store) DistinctCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(s.columns))
	for _, col := range s.columns {
		query := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM rows", quoteIdent(col))
		var n int
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting distinct %s: %w", col, err)
		}
		counts[col] = n
	}
	return counts, nil
}

// Close closes the database and removes the backing file.
func (s *Store) Close() error {
	err := s.db.Close()
	os.Remove(s.dbPath)
	return err
}

func sqlType(t models.ColumnType) string {
	switch t {
	case models.ColumnNumeric:
		return "DOUBLE"
	case models.ColumnDatetime:
		return "TIMESTAMP"
	case models.ColumnBoolean:
		return "BOOLEAN"
	default:
		return "VARCHAR"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case float64:
		return dataset.FormatFloat(val)
	case float32:
		return dataset.FormatFloat(float64(val))
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		return dataset.FormatTime(val)
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

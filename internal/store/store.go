// Package store is the execution collaborator of the pipeline: an
// in-memory SQLite database that holds the raw dataset and runs generated
// cleaning scripts against it. The store applies scripts as-is and reports
// their errors verbatim; containing a failed attempt's side effects is the
// script's job (each program drops and recreates its output table).
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"dataclinic/internal/types"
)

// Table names of the executor contract: generated programs read RawTable
// and must produce CleanTable.
const (
	RawTable   = "raw_data"
	CleanTable = "clean_data"
)

// Manager owns the in-memory database for one session.
type Manager struct {
	db  *sqlx.DB
	log *zap.Logger
}

// Open creates a fresh in-memory database.
func Open(logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A :memory: database exists per connection; the pool must never hand
	// out a second one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &Manager{db: db, log: logger}, nil
}

// Close releases the database.
func (m *Manager) Close() error {
	return m.db.Close()
}

// LoadCSV parses a CSV stream (header row required) into RawTable,
// replacing any previous dataset and any stale CleanTable. All columns are
// stored as TEXT; typing is the cleaning program's concern.
func (m *Manager) LoadCSV(r io.Reader) (*types.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	table := &types.Table{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make([]string, len(table.Columns))
		copy(row, rec)
		table.Rows = append(table.Rows, row)
	}

	if _, err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", RawTable)); err != nil {
		return nil, fmt.Errorf("failed to reset %s: %w", RawTable, err)
	}
	if _, err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", CleanTable)); err != nil {
		return nil, fmt.Errorf("failed to reset %s: %w", CleanTable, err)
	}

	cols := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		cols[i] = quoteIdent(c) + " TEXT"
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", RawTable, strings.Join(cols, ", "))
	if _, err := m.db.Exec(createStmt); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", RawTable, err)
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(table.Columns)), ",")
	insertStmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)", RawTable, placeholders)

	tx, err := m.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin load transaction: %w", err)
	}
	for _, row := range table.Rows {
		args := make([]any, len(row))
		for i, v := range row {
			if v == "" {
				args[i] = nil
			} else {
				args[i] = v
			}
		}
		if _, err := tx.Exec(insertStmt, args...); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit load: %w", err)
	}

	m.log.Info("loaded dataset",
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Columns)))
	return table, nil
}

// Sample returns the first n rows of a table.
func (m *Manager) Sample(table string, n int) (*types.Table, error) {
	return m.query(fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), n))
}

// ExecScript runs a multi-statement cleaning script. The returned error
// text is what the repair stage feeds back to the model, so it is not
// rewrapped beyond identifying the failing phase.
func (m *Manager) ExecScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("empty SQL script")
	}
	if _, err := m.db.Exec(script); err != nil {
		return fmt.Errorf("SQL execution failed: %w", err)
	}
	return nil
}

// Fetch returns a table's full contents, or nil without error when the
// table does not exist.
func (m *Manager) Fetch(table string) (*types.Table, error) {
	var count int
	err := m.db.Get(&count,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
	if err != nil {
		return nil, fmt.Errorf("failed to check for table %s: %w", table, err)
	}
	if count == 0 {
		return nil, nil
	}
	return m.query(fmt.Sprintf("SELECT * FROM %s", quoteIdent(table)))
}

// query materializes a result set whose column shape is unknown until
// runtime.
func (m *Manager) query(stmt string) (*types.Table, error) {
	rows, err := m.db.Queryx(stmt)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	table := &types.Table{Columns: cols}
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = valueToString(v)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return table, nil
}

// WriteCSV writes a table as CSV, header first.
func WriteCSV(w io.Writer, t *types.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// EmptyCells counts empty values in a table, for before/after summaries.
func EmptyCells(t *types.Table) int {
	if t == nil {
		return 0
	}
	n := 0
	for _, row := range t.Rows {
		for _, v := range row {
			if strings.TrimSpace(v) == "" {
				n++
			}
		}
	}
	return n
}

func valueToString(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(vv)
	case string:
		return vv
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// quoteIdent quotes an identifier so dataset column names with spaces or
// punctuation stay usable.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

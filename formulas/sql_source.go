package formulas

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by OpenSQLSource
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// TableName is the SQL table holding the formula rows
const TableName = "ivf_formulas"

// SQLSource reads and replaces formula rows in a SQL database.
// Every column is stored as text so numeric parsing stays in Lookup.
type SQLSource struct {
	db *sqlx.DB
}

// NewSQLSource wraps an existing connection
func NewSQLSource(db *sqlx.DB) *SQLSource {
	return &SQLSource{db: db}
}

// OpenSQLSource connects to the database and verifies the connection
func OpenSQLSource(ctx context.Context, driver, dsn string) (*SQLSource, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported formula database driver: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLSource{db: db}, nil
}

// Close releases the underlying connection pool
func (s *SQLSource) Close() error {
	return s.db.Close()
}

func quote(col string) string {
	return `"` + col + `"`
}

func quotedColumns() []string {
	cols := AllColumns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
	}
	return quoted
}

// SchemaSQL returns the DDL for the formula table
func SchemaSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + TableName + " (\n")
	for _, c := range quotedColumns() {
		b.WriteString("  " + c + " TEXT NOT NULL DEFAULT '',\n")
	}
	b.WriteString("  PRIMARY KEY (" + strings.Join(quotedSelectorColumns(), ", ") + ")\n)")
	return b.String()
}

func quotedSelectorColumns() []string {
	out := make([]string, len(SelectorColumns))
	for i, c := range SelectorColumns {
		out[i] = quote(c)
	}
	return out
}

// EnsureSchema creates the formula table if it does not exist.
// Postgres deployments normally rely on migrations instead.
func (s *SQLSource) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, SchemaSQL()); err != nil {
		return fmt.Errorf("failed to create %s: %w", TableName, err)
	}
	return nil
}

// Rows reads every stored formula row
func (s *SQLSource) Rows(ctx context.Context) ([]Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quotedColumns(), ", "), TableName, strings.Join(quotedSelectorColumns(), ", "))

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query formulas: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		values := make(map[string]any)
		if err := rows.MapScan(values); err != nil {
			return nil, fmt.Errorf("failed to scan formula row: %w", err)
		}

		row := make(Row, len(values))
		for col, v := range values {
			row[col] = textOf(v)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating formula rows: %w", err)
	}
	return out, nil
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// Import replaces the stored formula rows in a single transaction.
// Rows are built and validated first so a table that Load would refuse
// never reaches the database.
func (s *SQLSource) Import(ctx context.Context, rows []Row) error {
	table, err := Build(rows)
	if err != nil {
		return err
	}
	if err := table.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+TableName); err != nil {
		return fmt.Errorf("failed to clear formulas: %w", err)
	}

	cols := AllColumns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	insert := tx.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(quotedColumns(), ", "), placeholders))

	args := make([]any, len(cols))
	for i, row := range rows {
		for j, col := range cols {
			v := row[col]
			if j < len(SelectorColumns) {
				if f, ok := ParseFlag(v); ok {
					v = string(f)
				}
			}
			args[j] = v
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("failed to insert formula row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit formulas: %w", err)
	}
	return nil
}

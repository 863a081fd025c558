package dialect

import (
	"context"
	"database/sql"
	"time"
)

// Querier is the subset of *sql.DB and *sql.Tx the dialects need
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Dialect represents a SQL dialect for the databases a dump can be replayed into
type Dialect interface {
	// Name returns the dialect name (e.g., "mysql", "sqlite")
	Name() string

	// GetDriverName returns the database/sql driver name
	GetDriverName() string

	// FormatDSN converts a URL-style connection string to the driver's native DSN format
	FormatDSN(connStr string) string

	// QuoteIdentifier quotes a table or column name
	QuoteIdentifier(name string) string

	// Value formatting for generated dumps

	// FormatString formats a string value for SQL, with proper escaping
	FormatString(s string) string

	// FormatInt formats an integer value for SQL
	FormatInt(i int64) string

	// FormatFloat formats a float value for SQL
	FormatFloat(f float64) string

	// FormatBool formats a boolean value for SQL
	FormatBool(b bool) string

	// FormatTimestamp formats a time.Time value for SQL
	FormatTimestamp(t time.Time) string

	// FormatBinary formats raw bytes as a hex literal
	FormatBinary(b []byte) string

	// FormatNull returns the NULL literal for SQL
	FormatNull() string

	// Statement builders

	// DisableForeignKeyChecks suspends referential checks for the current session or transaction
	DisableForeignKeyChecks() string

	// EnableForeignKeyChecks restores referential checks
	EnableForeignKeyChecks() string

	// ClearTable removes all rows without leaving the current transaction
	ClearTable(table string) string

	// TruncateTable empties a table as fast as the engine allows
	TruncateTable(table string) string

	// DropTable drops a table if it exists
	DropTable(table string) string

	// MigrationsTableDDL creates the migration bookkeeping table if missing
	MigrationsTableDDL(table string) string

	// Schema introspection

	// TableExists reports whether the table exists in the connected database
	TableExists(ctx context.Context, q Querier, table string) (bool, error)

	// ListTables returns the base tables of the connected database, sorted by name
	ListTables(ctx context.Context, q Querier) ([]string, error)

	// ListColumns returns the column names of a table in ordinal order
	ListColumns(ctx context.Context, q Querier, table string) ([]string, error)

	// ShowCreateTable returns the DDL that recreates the table
	ShowCreateTable(ctx context.Context, q Querier, table string) (string, error)
}

// queryStrings runs a query returning one string column and collects the results
func queryStrings(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

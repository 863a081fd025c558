package dialect

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQLite implements the Dialect interface for SQLite through modernc.org/sqlite.
// It backs local imports and the package tests.
type SQLite struct{}

// NewSQLite creates a new SQLite dialect
func NewSQLite() *SQLite {
	return &SQLite{}
}

func (s *SQLite) Name() string {
	return "sqlite"
}

func (s *SQLite) GetDriverName() string {
	return "sqlite"
}

// FormatDSN strips the sqlite:// or sqlite: scheme, leaving a file path or :memory:
func (s *SQLite) FormatDSN(connStr string) string {
	lower := strings.ToLower(connStr)
	switch {
	case strings.HasPrefix(lower, "sqlite://"):
		return connStr[len("sqlite://"):]
	case strings.HasPrefix(lower, "sqlite:"):
		return connStr[len("sqlite:"):]
	}
	return connStr
}

func (s *SQLite) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// FormatString doubles single quotes. SQLite keeps backslashes literally but
// dump readers treat them as escapes, so each one is spliced in as char(92).
func (s *SQLite) FormatString(v string) string {
	if !strings.Contains(v, `\`) {
		return quoteSQLite(v)
	}

	segments := strings.Split(v, `\`)
	parts := make([]string, 0, 2*len(segments))
	for i, seg := range segments {
		if seg != "" {
			parts = append(parts, quoteSQLite(seg))
		}
		if i < len(segments)-1 {
			parts = append(parts, "char(92)")
		}
	}
	return strings.Join(parts, " || ")
}

func quoteSQLite(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func (s *SQLite) FormatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func (s *SQLite) FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func (s *SQLite) FormatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *SQLite) FormatTimestamp(t time.Time) string {
	return "'" + t.Format("2006-01-02 15:04:05") + "'"
}

func (s *SQLite) FormatBinary(b []byte) string {
	return "X'" + strings.ToUpper(hex.EncodeToString(b)) + "'"
}

func (s *SQLite) FormatNull() string {
	return "NULL"
}

// DisableForeignKeyChecks defers enforcement to commit time. PRAGMA foreign_keys
// is a no-op inside a transaction, defer_foreign_keys is not.
func (s *SQLite) DisableForeignKeyChecks() string {
	return "PRAGMA defer_foreign_keys = ON"
}

func (s *SQLite) EnableForeignKeyChecks() string {
	return "PRAGMA defer_foreign_keys = OFF"
}

func (s *SQLite) ClearTable(table string) string {
	return "DELETE FROM " + s.QuoteIdentifier(table)
}

// TruncateTable is a plain DELETE, SQLite has no TRUNCATE
func (s *SQLite) TruncateTable(table string) string {
	return "DELETE FROM " + s.QuoteIdentifier(table)
}

func (s *SQLite) DropTable(table string) string {
	return "DROP TABLE IF EXISTS " + s.QuoteIdentifier(table)
}

func (s *SQLite) MigrationsTableDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  "id" INTEGER PRIMARY KEY AUTOINCREMENT,
  "migration" TEXT NOT NULL,
  "batch" INTEGER NOT NULL
)`, s.QuoteIdentifier(table))
}

func (s *SQLite) TableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name = ? COLLATE NOCASE`, table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return count > 0, nil
}

func (s *SQLite) ListTables(ctx context.Context, q Querier) ([]string, error) {
	tables, err := queryStrings(ctx, q, `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *SQLite) ListColumns(ctx context.Context, q Querier, table string) ([]string, error) {
	columns, err := queryStrings(ctx, q, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	return columns, nil
}

func (s *SQLite) ShowCreateTable(ctx context.Context, q Querier, table string) (string, error) {
	var ddl string
	err := q.QueryRowContext(ctx, `SELECT sql FROM sqlite_master
		WHERE type = 'table' AND name = ? COLLATE NOCASE`, table).Scan(&ddl)
	if err != nil {
		return "", fmt.Errorf("failed to read definition of %s: %w", table, err)
	}
	return ddl, nil
}

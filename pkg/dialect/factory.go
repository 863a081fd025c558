package dialect

import (
	"fmt"
	"strings"
)

// FromConnectionString returns the appropriate dialect based on the connection string
func FromConnectionString(connStr string) (Dialect, error) {
	lower := strings.ToLower(connStr)

	switch {
	case strings.HasPrefix(lower, "mysql://"):
		return NewMySQL(), nil
	case strings.HasPrefix(lower, "sqlite:") || lower == ":memory:":
		return NewSQLite(), nil
	case strings.Contains(lower, "://"):
		return nil, fmt.Errorf("unsupported connection scheme: %s", connStr[:strings.Index(connStr, "://")])
	case strings.Contains(lower, "@tcp(") || strings.Contains(lower, "@unix("):
		return NewMySQL(), nil
	case strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".db"):
		return NewSQLite(), nil
	}

	// Bare go-sql-driver DSNs without a network section
	return NewMySQL(), nil
}

// FromName returns the dialect by name, accepting the DB_CONNECTION values of a Laravel .env
func FromName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql", "mariadb":
		return NewMySQL(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(), nil
	default:
		return nil, fmt.Errorf("unknown dialect: %s", name)
	}
}

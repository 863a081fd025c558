// Package database opens the target database and wraps it with its dialect.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"tnll-dbtool/pkg/dialect"
)

const (
	defaultMaxAttempts = 5
	maxBackoff         = 30 * time.Second
)

// DB is an open connection pool together with the dialect that speaks to it
type DB struct {
	*sql.DB
	Dialect dialect.Dialect
	Target  string
}

// Options tune Open
type Options struct {
	// MaxAttempts bounds connection retries (0 = default of 5)
	MaxAttempts int
	// InitialBackoff is the first retry delay (0 = one second)
	InitialBackoff time.Duration
	Logger         *slog.Logger
}

// Open resolves the dialect from the connection string, connects and pings,
// retrying with exponential backoff
func Open(ctx context.Context, connStr string, opts Options) (*DB, error) {
	d, err := dialect.FromConnectionString(connStr)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	dsn := d.FormatDSN(connStr)
	db, err := connectWithRetry(ctx, logger, attempts, backoff, func() (*sql.DB, error) {
		logger.Debug("Connecting to database", "dialect", d.Name())
		db, err := sql.Open(d.GetDriverName(), dsn)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", d.Name(), err)
	}

	// One connection keeps an in-memory SQLite database alive and serializes writers
	if d.Name() == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	return &DB{DB: db, Dialect: d, Target: Redact(connStr)}, nil
}

func connectWithRetry[T any](ctx context.Context, logger *slog.Logger, attempts int, backoff time.Duration, connectFn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := connectFn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		logger.Warn("Connection failed, retrying", "error", err, "attempt", attempt, "retry_in", backoff)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
	return zero, lastErr
}

// MySQLConfig parses a mysql:// URL or native DSN into driver settings
func MySQLConfig(connStr string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dialect.NewMySQL().FormatDSN(connStr))
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL connection string: %w", err)
	}
	return cfg, nil
}

// Redact hides the password of a connection string for logs
func Redact(connStr string) string {
	d, err := dialect.FromConnectionString(connStr)
	if err != nil || d.Name() != "mysql" {
		return connStr
	}
	cfg, err := MySQLConfig(connStr)
	if err != nil {
		return "mysql"
	}
	return fmt.Sprintf("mysql://%s@%s/%s", cfg.User, cfg.Addr, cfg.DBName)
}

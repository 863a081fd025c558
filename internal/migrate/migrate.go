// Package migrate applies schema migrations kept as .sql files, recording
// them in a Laravel-style migrations table (id, migration, batch).
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tnll-dbtool/internal/parser"
	"tnll-dbtool/pkg/dialect"
)

// ErrProduction is returned when migrations would run against production without force
var ErrProduction = errors.New("refusing to migrate in production without force")

// Runner applies pending migrations from a directory
type Runner struct {
	db         *sql.DB
	dialect    dialect.Dialect
	dir        string
	table      string
	production bool
	logger     *slog.Logger
}

// Options configure a Runner
type Options struct {
	Dir        string
	Table      string
	Production bool
	Logger     *slog.Logger
}

// NewRunner creates a migration runner
func NewRunner(db *sql.DB, d dialect.Dialect, opts Options) *Runner {
	if opts.Table == "" {
		opts.Table = "migrations"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		db:         db,
		dialect:    d,
		dir:        opts.Dir,
		table:      opts.Table,
		production: opts.Production,
		logger:     opts.Logger,
	}
}

// Migration is one migration file and whether it has run
type Migration struct {
	Name  string
	Path  string
	Ran   bool
	Batch int
}

// Status lists every migration file with its recorded batch
func (r *Runner) Status(ctx context.Context) ([]Migration, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}

	files, err := r.files()
	if err != nil {
		return nil, err
	}
	ran, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, 0, len(files))
	for _, path := range files {
		name := migrationName(path)
		batch, ok := ran[name]
		out = append(out, Migration{Name: name, Path: path, Ran: ok, Batch: batch})
	}
	return out, nil
}

// RunPending applies every migration not yet recorded, in filename order,
// as one new batch. The returned text lists what ran.
func (r *Runner) RunPending(ctx context.Context, force bool) (string, error) {
	if r.production && !force {
		return "", ErrProduction
	}

	status, err := r.Status(ctx)
	if err != nil {
		return "", err
	}

	var pending []Migration
	for _, m := range status {
		if !m.Ran {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return "Nothing to migrate.", nil
	}

	batch, err := r.nextBatch(ctx)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, m := range pending {
		fmt.Fprintf(&out, "Migrating: %s\n", m.Name)
		start := time.Now()
		if err := r.apply(ctx, m, batch); err != nil {
			return out.String(), err
		}
		elapsed := time.Since(start)
		fmt.Fprintf(&out, "Migrated:  %s (%.2fms)\n", m.Name, float64(elapsed.Microseconds())/1000)
		r.logger.Info("Migrated", "migration", m.Name, "batch", batch, "duration", elapsed)
	}

	return strings.TrimSuffix(out.String(), "\n"), nil
}

func (r *Runner) apply(ctx context.Context, m Migration, batch int) error {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("failed to read migration %s: %w", m.Name, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", m.Name, err)
	}
	defer tx.Rollback()

	for _, stmt := range parser.SplitStatements(string(data)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Name, err)
		}
	}

	record := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
		r.dialect.QuoteIdentifier(r.table),
		r.dialect.QuoteIdentifier("migration"),
		r.dialect.QuoteIdentifier("batch"))
	if _, err := tx.ExecContext(ctx, record, m.Name, batch); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.Name, err)
	}

	return tx.Commit()
}

func (r *Runner) ensureTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.MigrationsTableDDL(r.table)); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.table, err)
	}
	return nil
}

func (r *Runner) ran(ctx context.Context) (map[string]int, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s",
		r.dialect.QuoteIdentifier("migration"),
		r.dialect.QuoteIdentifier("batch"),
		r.dialect.QuoteIdentifier(r.table))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.table, err)
	}
	defer rows.Close()

	ran := make(map[string]int)
	for rows.Next() {
		var name string
		var batch int
		if err := rows.Scan(&name, &batch); err != nil {
			return nil, err
		}
		ran[name] = batch
	}
	return ran, rows.Err()
}

func (r *Runner) nextBatch(ctx context.Context) (int, error) {
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) + 1 FROM %s",
		r.dialect.QuoteIdentifier("batch"), r.dialect.QuoteIdentifier(r.table))

	var batch int
	if err := r.db.QueryRowContext(ctx, query).Scan(&batch); err != nil {
		return 0, fmt.Errorf("failed to read next batch: %w", err)
	}
	return batch, nil
}

func (r *Runner) files() ([]string, error) {
	if r.dir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(r.dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func migrationName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".sql")
}

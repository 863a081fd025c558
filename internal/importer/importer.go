// Package importer replays SQL dumps into the live database, either restoring
// the complete schema or merging historical rows into the current one.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"tnll-dbtool/internal/parser"
	"tnll-dbtool/internal/rewrite"
	"tnll-dbtool/pkg/dialect"
)

// ErrEmptyDump is returned before any transaction is opened when the dump holds no statements
var ErrEmptyDump = errors.New("dump file is empty")

// MigrationRunner applies pending schema migrations after a full import
type MigrationRunner interface {
	RunPending(ctx context.Context, force bool) (string, error)
}

// Config names the tables that get special treatment during replay
type Config struct {
	// MigrationsTable is the migration bookkeeping table. Its rows are never
	// replayed; it is emptied after a full import so migrations rerun.
	MigrationsTable string

	// SystemTables are skipped by data-only imports
	SystemTables []string
}

// DefaultConfig returns the tables a Laravel application keeps for itself
func DefaultConfig() Config {
	return Config{
		MigrationsTable: "migrations",
		SystemTables: []string{
			"migrations",
			"sessions",
			"cache",
			"cache_locks",
			"jobs",
			"job_batches",
			"failed_jobs",
			"password_reset_tokens",
		},
	}
}

// Importer replays dump files against one database
type Importer struct {
	db       *sql.DB
	dialect  dialect.Dialect
	migrator MigrationRunner
	cfg      Config
	parser   *parser.DumpParser
	filter   *rewrite.Filter
	logger   *slog.Logger
	system   map[string]bool
}

// New creates an importer. migrator may be nil, in which case full imports
// skip the migration step.
func New(db *sql.DB, d dialect.Dialect, migrator MigrationRunner, cfg Config, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MigrationsTable == "" {
		cfg.MigrationsTable = DefaultConfig().MigrationsTable
	}

	system := make(map[string]bool, len(cfg.SystemTables))
	for _, table := range cfg.SystemTables {
		system[strings.ToLower(table)] = true
	}

	return &Importer{
		db:       db,
		dialect:  d,
		migrator: migrator,
		cfg:      cfg,
		parser:   parser.NewDumpParser(),
		filter:   rewrite.NewFilter(logger),
		logger:   logger,
		system:   system,
	}
}

// SetMaxDumpSize rejects dumps larger than n bytes (0 = unlimited)
func (imp *Importer) SetMaxDumpSize(n int64) {
	imp.parser.MaxBytes = n
}

// load reads and splits the dump, failing before any database work when the
// file is missing, unreadable or empty
func (imp *Importer) load(path string) (*parser.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDump, path)
	}

	doc, err := imp.parser.Parse(path)
	if err != nil {
		return nil, err
	}
	if len(doc.Statements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDump, path)
	}

	imp.logger.Info("Parsed dump",
		"file", path,
		"bytes", doc.Metadata.Bytes,
		"statements", doc.Metadata.StatementCount,
		"creates", doc.Metadata.CreateTableCount,
		"inserts", doc.Metadata.InsertCount,
		"tables", len(doc.Metadata.TablesFound))

	return doc, nil
}

func (imp *Importer) isMigrationsTable(table string) bool {
	return strings.EqualFold(table, imp.cfg.MigrationsTable)
}

func (imp *Importer) isSystemTable(table string) bool {
	return imp.system[strings.ToLower(table)]
}

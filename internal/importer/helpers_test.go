package importer

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"tnll-dbtool/pkg/dialect"
)

type fakeMigrator struct {
	calls  int
	force  bool
	output string
	err    error
}

func (m *fakeMigrator) RunPending(ctx context.Context, force bool) (string, error) {
	m.calls++
	m.force = force
	return m.output, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestImporter(t *testing.T, migrator MigrationRunner) (*Importer, *sql.DB) {
	t.Helper()

	db := openTestDB(t)
	return New(db, dialect.NewSQLite(), migrator, DefaultConfig(), discardLogger()), db
}

func execAll(t *testing.T, db *sql.DB, statements ...string) {
	t.Helper()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to exec %q: %v", stmt, err)
		}
	}
}

func writeDump(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dump.sql")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dump: %v", err)
	}
	return path
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

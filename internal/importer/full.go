package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tnll-dbtool/internal/parser"
)

// ImportSQL restores a complete dump: every table it creates is dropped and
// recreated, and its statements are replayed verbatim inside one transaction
// with foreign-key checks suspended. Rows for the migrations table are not
// replayed; after commit the table is emptied and pending migrations run.
//
// On MySQL, CREATE and DROP commit implicitly, so a failure rolls back only
// the statements since the last DDL. SQLite rolls back completely.
func (imp *Importer) ImportSQL(ctx context.Context, path string) (*FullResult, error) {
	doc, err := imp.load(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &FullResult{}

	sess, err := imp.begin(ctx)
	if err != nil {
		return nil, err
	}

	for _, stmt := range doc.Statements {
		if err := ctx.Err(); err != nil {
			return nil, sess.abort(ctx, "", err)
		}

		if skip, reason := imp.skipInFullImport(stmt); skip {
			imp.logger.Debug("Skipping statement", "reason", reason, "table", stmt.Table)
			result.StatementsSkipped++
			continue
		}

		if stmt.Kind == parser.KindCreateTable {
			if err := sess.exec(ctx, imp.dialect.DropTable(stmt.Table)); err != nil {
				return nil, sess.abort(ctx, stmt.Raw, err)
			}
			result.TablesProcessed++
			result.Tables = append(result.Tables, stmt.Table)
			imp.logger.Debug("Recreating table", "table", stmt.Table)
		}

		if err := sess.exec(ctx, stmt.Raw); err != nil {
			return nil, sess.abort(ctx, stmt.Raw, err)
		}
		result.StatementsExecuted++
	}

	if err := sess.commit(ctx); err != nil {
		return nil, err
	}
	imp.logger.Info("Dump replayed", "tables", result.TablesProcessed, "statements", result.StatementsExecuted)

	output, err := imp.resetMigrations(ctx)
	result.MigrationOutput = output
	result.Duration = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("data restored but migrations failed: %w", err)
	}

	return result, nil
}

// skipInFullImport filters statements that must not run inside the replay transaction
func (imp *Importer) skipInFullImport(stmt parser.Statement) (bool, string) {
	if stmt.Kind == parser.KindInsert && imp.isMigrationsTable(stmt.Table) {
		return true, "migrations table rows"
	}

	upper := strings.ToUpper(stmt.Raw)
	switch {
	case strings.HasPrefix(upper, "/*") && !strings.HasPrefix(upper, "/*!"):
		return true, "comment"
	case strings.HasPrefix(upper, "LOCK TABLES"), strings.HasPrefix(upper, "UNLOCK TABLES"):
		// LOCK TABLES commits the open transaction on MySQL
		return true, "table lock"
	case strings.HasPrefix(upper, "USE ") || strings.HasPrefix(upper, "USE`"):
		// dumps from another server name their own database
		return true, "database switch"
	}
	return false, ""
}

// resetMigrations empties the migrations table and reruns every migration
// so the restored schema is brought up to date
func (imp *Importer) resetMigrations(ctx context.Context) (string, error) {
	if imp.migrator == nil {
		return "", nil
	}

	exists, err := imp.dialect.TableExists(ctx, imp.db, imp.cfg.MigrationsTable)
	if err != nil {
		return "", err
	}
	if exists {
		if _, err := imp.db.ExecContext(ctx, imp.dialect.TruncateTable(imp.cfg.MigrationsTable)); err != nil {
			return "", fmt.Errorf("failed to reset %s: %w", imp.cfg.MigrationsTable, err)
		}
	}

	return imp.migrator.RunPending(ctx, true)
}

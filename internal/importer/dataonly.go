package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tnll-dbtool/internal/database"
	"tnll-dbtool/internal/parser"
)

// DataOptions tune a data-only import
type DataOptions struct {
	// ClearExisting empties each target table once, before its first insert
	ClearExisting bool
}

// tableState caches schema lookups for one import
type tableState struct {
	exists  bool
	columns []string
	cleared bool
}

// ImportSQLDataOnly merges the rows of a dump into the live schema. Only
// INSERT statements run; they are rewritten to REPLACE against the live
// columns. System tables and tables missing from the live schema are
// skipped. A failing statement is logged and counted without aborting the
// import; multi-row statements are retried row by row so good rows survive.
func (imp *Importer) ImportSQLDataOnly(ctx context.Context, path string, opts DataOptions) (*DataResult, error) {
	doc, err := imp.load(path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &DataResult{}
	tables := make(map[string]*tableState)

	sess, err := imp.begin(ctx)
	if err != nil {
		return nil, err
	}

	for _, stmt := range doc.Statements {
		if err := ctx.Err(); err != nil {
			return nil, sess.abort(ctx, "", err)
		}
		if stmt.Kind != parser.KindInsert {
			result.Skipped++
			continue
		}

		if stmt.Table == "" || imp.isSystemTable(stmt.Table) {
			imp.logger.Debug("Skipping system table", "table", stmt.Table)
			result.Skipped++
			continue
		}

		key := strings.ToLower(stmt.Table)
		state, ok := tables[key]
		if !ok {
			state, err = imp.lookupTable(ctx, sess, stmt.Table)
			if err != nil {
				imp.recordError(result, stmt.Table, database.DescribeError(err))
				result.Skipped++
				continue
			}
			tables[key] = state
			if !state.exists {
				imp.logger.Warn("Table not in live schema, skipping its rows", "table", stmt.Table)
			}
		}
		if !state.exists {
			result.Skipped++
			continue
		}

		if opts.ClearExisting && !state.cleared {
			state.cleared = true
			if err := sess.exec(ctx, imp.dialect.ClearTable(stmt.Table)); err != nil {
				imp.recordError(result, stmt.Table, database.DescribeError(err))
			} else {
				result.ClearedTables = append(result.ClearedTables, stmt.Table)
				imp.logger.Info("Cleared table", "table", stmt.Table)
			}
		}

		res, ok := imp.filter.FilterInsert(stmt.Raw, state.columns)
		result.Skipped += res.SkippedRows
		result.addDropped(stmt.Table, res.DroppedColumns)
		if !ok {
			if res.Err != nil {
				imp.recordError(result, stmt.Table, res.Err.Error())
			}
			result.Skipped++
			continue
		}

		rows := len(res.Rows)
		if rows == 0 {
			rows = 1
		}

		err := sess.exec(ctx, res.SQL)
		if err == nil {
			result.Inserted++
			result.RowsInserted += rows
			continue
		}

		perRow := res.RowStatements()
		if len(perRow) == 0 {
			imp.recordError(result, stmt.Table, database.DescribeError(err))
			result.Skipped++
			continue
		}

		imp.logger.Warn("Multi-row insert failed, retrying row by row",
			"table", stmt.Table, "rows", len(perRow), "error", database.DescribeError(err))
		saved := imp.salvageRows(ctx, sess, stmt.Table, perRow, result)
		if saved > 0 {
			result.Inserted++
			result.RowsInserted += saved
		}
	}

	if err := sess.commit(ctx); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	imp.logger.Info("Data import finished",
		"inserted", result.Inserted,
		"rows", result.RowsInserted,
		"skipped", result.Skipped,
		"errors", len(result.Errors))

	return result, nil
}

func (imp *Importer) lookupTable(ctx context.Context, sess *session, table string) (*tableState, error) {
	exists, err := imp.dialect.TableExists(ctx, sess.tx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &tableState{}, nil
	}

	columns, err := imp.dialect.ListColumns(ctx, sess.tx, table)
	if err != nil {
		return nil, err
	}
	return &tableState{exists: true, columns: columns}, nil
}

// salvageRows runs single-row statements, returning how many succeeded.
// Only the first failure is recorded as an error; every failed row counts as skipped.
func (imp *Importer) salvageRows(ctx context.Context, sess *session, table string, statements []string, result *DataResult) int {
	saved := 0
	var firstErr error
	for _, stmt := range statements {
		if err := sess.exec(ctx, stmt); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			result.Skipped++
			continue
		}
		saved++
	}

	if firstErr != nil {
		imp.recordError(result, table, fmt.Sprintf("%d of %d rows rejected: %s",
			len(statements)-saved, len(statements), database.DescribeError(firstErr)))
	}
	return saved
}

func (imp *Importer) recordError(result *DataResult, table, msg string) {
	msg = database.Truncate(msg, database.MaxErrorLength)
	imp.logger.Error("Statement failed", "table", table, "error", msg)
	result.Errors = append(result.Errors, table+": "+msg)
}

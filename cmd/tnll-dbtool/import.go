package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"tnll-dbtool/internal/database"
	"tnll-dbtool/internal/importer"
	"tnll-dbtool/internal/parser"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replay a SQL dump into the database",
	}

	cmd.AddCommand(newImportFullCmd())
	cmd.AddCommand(newImportDataCmd())

	return cmd
}

func newImportFullCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "full FILE",
		Short: "Drop and recreate every table in the dump, then rerun migrations",
		Long: `Replays the dump verbatim with foreign-key checks suspended. Every table the
dump creates is dropped first. Rows for the migrations table are ignored; after
the replay the migrations table is emptied and all migrations run again.

On MySQL every CREATE or DROP commits implicitly, so a failure only rolls back
the statements that followed the last one. SQLite replays atomically.

FILE may be a path or the name of a backup in the backup directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			path, err := a.resolveDump(args[0])
			if err != nil {
				return err
			}
			if err := a.previewDump(cmd, path); err != nil {
				return err
			}
			if !yes {
				return errors.New("a full import replaces existing tables; rerun with --yes to continue")
			}

			return a.runImport(ctx, cmd, importer.ModeFull, path, importer.DataOptions{})
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm that existing tables may be replaced")
	return cmd
}

func newImportDataCmd() *cobra.Command {
	var clearExisting bool

	cmd := &cobra.Command{
		Use:   "data FILE",
		Short: "Merge the rows of a dump into the current schema",
		Long: `Runs only the INSERT statements of the dump, rewritten as REPLACE against the
live columns. Columns the current schema no longer has are dropped, tables it
does not have are skipped, and system tables are never touched.

FILE may be a path or the name of a backup in the backup directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			path, err := a.resolveDump(args[0])
			if err != nil {
				return err
			}
			if err := a.previewDump(cmd, path); err != nil {
				return err
			}

			return a.runImport(ctx, cmd, importer.ModeDataOnly, path, importer.DataOptions{ClearExisting: clearExisting})
		}),
	}

	cmd.Flags().BoolVar(&clearExisting, "clear", false, "Empty each target table before its first insert")
	return cmd
}

// resolveDump accepts a file path or a backup name
func (a *app) resolveDump(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}

	path, err := a.fileManager().Path(arg)
	if err != nil {
		return "", fmt.Errorf("dump file does not exist: %s", arg)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("dump file does not exist: %s", arg)
	}
	return path, nil
}

func (a *app) previewDump(cmd *cobra.Command, path string) error {
	p := parser.NewDumpParser()
	p.MaxBytes = a.cfg.Import.MaxDumpSize

	doc, err := p.Parse(path)
	if err != nil {
		return err
	}
	printDumpMetadata(cmd, doc)
	printf(cmd, "\n")
	return nil
}

func (a *app) runImport(ctx context.Context, cmd *cobra.Command, mode importer.Mode, path string, opts importer.DataOptions) error {
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}

	imp := importer.New(db.DB, db.Dialect, a.migrator(db), importer.Config{
		MigrationsTable: a.cfg.Import.MigrationsTable,
		SystemTables:    a.cfg.Import.SystemTables,
	}, a.logger)
	imp.SetMaxDumpSize(a.cfg.Import.MaxDumpSize)

	a.logger.Info("Starting import", "mode", mode, "dump", path)
	report, err := imp.Run(ctx, mode, path, opts)

	summary := ""
	if report != nil {
		summary = report.Summary()
		printReport(cmd, report)
	}
	a.record(ctx, "import:"+mode.String(), path, summary, err)

	if err != nil {
		var replayErr *importer.ReplayError
		if errors.As(err, &replayErr) && replayErr.Statement != "" {
			printf(cmd, "Failed statement:\n%s\n", truncateStatement(replayErr.Statement))
		}
		return fmt.Errorf("%s import failed: %w", mode, err)
	}
	return nil
}

func printReport(cmd *cobra.Command, report *importer.Report) {
	printf(cmd, "%s\n", report.Summary())

	switch report.Mode {
	case importer.ModeFull:
		if report.Full != nil && report.Full.MigrationOutput != "" {
			printf(cmd, "\n%s\n", report.Full.MigrationOutput)
		}
	case importer.ModeDataOnly:
		res := report.Data
		if res == nil {
			return
		}
		if len(res.ClearedTables) > 0 {
			printf(cmd, "Cleared: %v\n", res.ClearedTables)
		}
		tables := make([]string, 0, len(res.DroppedColumns))
		for table := range res.DroppedColumns {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			printf(cmd, "Dropped columns in %s: %v\n", table, res.DroppedColumns[table])
		}
		for _, msg := range res.Errors {
			printf(cmd, "  error: %s\n", msg)
		}
	}
}

func truncateStatement(stmt string) string {
	return database.Truncate(stmt, 500)
}

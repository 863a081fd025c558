package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tnll-dbtool/internal/backup"
	"tnll-dbtool/internal/database"
	"tnll-dbtool/internal/parser"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and prune SQL backups",
	}

	cmd.AddCommand(newBackupCreateCmd())
	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupShowCmd())
	cmd.AddCommand(newBackupDeleteCmd())
	cmd.AddCommand(newBackupPruneCmd())

	return cmd
}

// backupManager wires the manual writer and, for MySQL targets, mysqldump
func (a *app) backupManager(db *database.DB, manualOnly bool) *backup.Manager {
	var external *backup.ExternalDumper
	if !manualOnly && db.Dialect.Name() == "mysql" && a.cfg.Backup.Mysqldump != "" {
		mc, err := database.MySQLConfig(a.cfg.ConnectionString())
		if err != nil {
			a.logger.Warn("Cannot configure mysqldump, using manual backups", "error", err)
		} else {
			external = backup.NewExternalDumper(a.cfg.Backup.Mysqldump, mc)
		}
	}
	return backup.NewManager(a.cfg.Backup.Dir, db.DB, db.Dialect, external, a.logger)
}

// fileManager is enough for commands that only touch the backup directory
func (a *app) fileManager() *backup.Manager {
	return backup.NewManager(a.cfg.Backup.Dir, nil, nil, nil, a.logger)
}

func newBackupCreateCmd() *cobra.Command {
	var manual bool

	cmd := &cobra.Command{
		Use:   "create [NAME]",
		Short: "Write a backup of the current database",
		Args:  cobra.MaximumNArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}

			var name string
			if len(args) == 1 {
				name = args[0]
			}

			info, err := a.backupManager(db, manual).Create(ctx, name)
			if err != nil {
				a.record(ctx, "backup", name, "", err)
				return fmt.Errorf("backup failed: %w", err)
			}

			summary := fmt.Sprintf("%s (%s, %s)", info.Name, info.HumanSize, info.Method)
			a.record(ctx, "backup", info.Name, summary, nil)
			printf(cmd, "Backup created: %s\n", info.Path)
			printf(cmd, "  Size:   %s\n", info.HumanSize)
			printf(cmd, "  Method: %s\n", info.Method)
			if info.Method == backup.MethodManual {
				printf(cmd, "  Tables: %d, rows: %d\n", info.Tables, info.Rows)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&manual, "manual", false, "Skip mysqldump and use the built-in writer")
	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			mgr := a.fileManager()
			backups, err := mgr.List()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				printf(cmd, "No backups in %s\n", mgr.Dir())
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
			for _, b := range backups {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.HumanSize, b.ModTime.Format(time.DateTime))
			}
			return w.Flush()
		}),
	}
}

func newBackupShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show the size and contents summary of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			path, err := a.fileManager().Path(args[0])
			if err != nil {
				return err
			}

			doc, err := parser.NewDumpParser().Parse(path)
			if err != nil {
				return err
			}
			printDumpMetadata(cmd, doc)
			return nil
		}),
	}
}

func newBackupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			ok, err := a.fileManager().Delete(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("backup %s not found", args[0])
			}
			printf(cmd, "Deleted %s\n", args[0])
			return nil
		}),
	}
}

func newBackupPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest backups",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Backup.Keep
			}

			removed, err := a.fileManager().Prune(keep)
			summary := fmt.Sprintf("kept %d, removed %d", keep, len(removed))
			a.record(ctx, "prune", a.cfg.Backup.Dir, summary, err)
			if err != nil {
				return err
			}

			for _, name := range removed {
				printf(cmd, "Deleted %s\n", name)
			}
			printf(cmd, "Pruned %d backups, kept newest %d\n", len(removed), keep)
			return nil
		}),
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "Number of backups to keep (default from config)")
	return cmd
}

func printDumpMetadata(cmd *cobra.Command, doc *parser.Document) {
	m := doc.Metadata
	if m.SourceFile != "" {
		printf(cmd, "Dump:        %s\n", m.SourceFile)
	}
	printf(cmd, "Size:        %s\n", backup.HumanSize(m.Bytes))
	printf(cmd, "Statements:  %d (%d CREATE TABLE, %d DROP TABLE, %d INSERT, %d other)\n",
		m.StatementCount, m.CreateTableCount, m.DropTableCount, m.InsertCount, m.OtherCount)
	if len(m.TablesFound) > 0 {
		printf(cmd, "Tables:      %s\n", strings.Join(m.TablesFound, ", "))
	}
}

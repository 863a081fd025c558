package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tnll-dbtool/internal/database"
	"tnll-dbtool/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run pending migrations",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}

			output, err := a.migrator(db).RunPending(ctx, force)
			if output != "" {
				printf(cmd, "%s\n", output)
			}
			a.record(ctx, "migrate", a.cfg.Migrations.Dir, output, err)
			return err
		}),
	}

	cmd.Flags().BoolVar(&force, "force", false, "Run even when the environment is production")
	cmd.AddCommand(newMigrateStatusCmd())
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which migrations have run",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}

			migrations, err := a.migrator(db).Status(ctx)
			if err != nil {
				return err
			}
			if len(migrations) == 0 {
				printf(cmd, "No migrations found in %s\n", a.cfg.Migrations.Dir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RAN?\tMIGRATION\tBATCH")
			for _, m := range migrations {
				ran, batch := "No", ""
				if m.Ran {
					ran, batch = "Yes", fmt.Sprint(m.Batch)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", ran, m.Name, batch)
			}
			return w.Flush()
		}),
	}
}

func (a *app) migrator(db *database.DB) *migrate.Runner {
	return migrate.NewRunner(db.DB, db.Dialect, migrate.Options{
		Dir:        a.cfg.Migrations.Dir,
		Table:      a.cfg.Import.MigrationsTable,
		Production: a.cfg.Migrations.Production,
		Logger:     a.logger,
	})
}

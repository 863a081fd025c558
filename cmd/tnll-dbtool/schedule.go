package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tnll-dbtool/internal/scheduler"
)

func newScheduleCmd() *cobra.Command {
	var (
		expr   string
		keep   int
		runNow bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run backups on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if expr == "" {
				expr = a.cfg.Backup.Schedule
			}
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Backup.Keep
			}

			db, err := a.openDB(ctx)
			if err != nil {
				return err
			}

			s, err := scheduler.New(expr, a.backupManager(db, false), keep, a.logger)
			if err != nil {
				return err
			}
			s.OnRun(func(run scheduler.Run) {
				target, summary := "", ""
				if run.Info != nil {
					target = run.Info.Name
					summary = fmt.Sprintf("%s (%s)", run.Info.HumanSize, run.Info.Method)
					if len(run.Pruned) > 0 {
						summary += ", pruned " + strings.Join(run.Pruned, ", ")
					}
				}
				a.record(ctx, "scheduled-backup", target, summary, run.Err)
			})

			if runNow {
				s.RunOnce(ctx)
			}
			if err := s.Start(); err != nil {
				return err
			}
			printf(cmd, "Backing up on %q, next run at %s. Press Ctrl+C to stop.\n", expr, s.Next().Format(time.DateTime))

			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			return s.Stop(stopCtx)
		}),
	}

	cmd.Flags().StringVar(&expr, "cron", "", "Cron expression (default from config)")
	cmd.Flags().IntVar(&keep, "keep", 0, "Backups to keep after each run, 0 keeps all (default from config)")
	cmd.Flags().BoolVar(&runNow, "now", false, "Take a backup immediately before waiting for the schedule")
	return cmd
}

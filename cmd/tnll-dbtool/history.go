package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tnll-dbtool/internal/journal"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit  int
		follow bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backups and imports from the operation journal",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if a.cfg.Journal.RedisURL == "" {
				return errors.New("no journal configured: set REDIS_URL or journal.redis_url")
			}
			j := a.openJournal()
			if j == nil {
				return errors.New("operation journal unavailable")
			}

			entries, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tOPERATION\tTARGET\tRESULT")
			for i := len(entries) - 1; i >= 0; i-- {
				writeEntry(w, entries[i])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if !follow {
				return nil
			}
			return j.Follow(ctx, func(e journal.Entry) {
				writeEntry(w, e)
				w.Flush()
			})
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries as they are recorded")
	return cmd
}

func writeEntry(w io.Writer, e journal.Entry) {
	result := "ok"
	if e.Summary != "" {
		result = e.Summary
	}
	if !e.Success {
		result = "FAILED: " + e.Error
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.At.Local().Format(time.DateTime), e.Operation, e.Target, result)
}

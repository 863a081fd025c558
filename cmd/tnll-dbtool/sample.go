package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"tnll-dbtool/internal/sampledump"
	"tnll-dbtool/pkg/dialect"
)

func newSampleCmd() *cobra.Command {
	var (
		out         string
		dialectName string
		opts        sampledump.Options
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a dump of fake TNLL data for demos and import testing",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			d, err := dialect.FromName(dialectName)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			stats, err := sampledump.New(d, opts).Write(w)
			if err != nil {
				return err
			}

			a.logger.Info("Sample dump written",
				"dialect", d.Name(),
				"tables", len(stats.Tables),
				"rows", stats.TotalRows(),
				"out", out)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&dialectName, "dialect", "mysql", "SQL dialect: mysql or sqlite")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "Random seed (0 picks one and records it in the header)")
	cmd.Flags().IntVar(&opts.Destinations, "destinations", 0, "Number of destinations")
	cmd.Flags().IntVar(&opts.Users, "users", 0, "Number of users")
	cmd.Flags().IntVar(&opts.Bookings, "bookings", 0, "Number of bookings")
	cmd.Flags().IntVar(&opts.RowsPerInsert, "rows-per-insert", 0, "Rows per extended INSERT")
	return cmd
}

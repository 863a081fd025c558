package main

import (
	"github.com/spf13/cobra"

	"tnll-dbtool/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Info()
			printf(cmd, "tnll-dbtool %s\n", version.String())
			printf(cmd, "  built: %s\n", info.BuildDate)
		},
	}
}

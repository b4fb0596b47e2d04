package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "lunchctl",
		Short:         "School lunch ordering operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default ./config.yaml)")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newReportCmd(opts))
	return cmd
}

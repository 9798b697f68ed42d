package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the clientlance CLI. Without a subcommand it serves the API.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "clientlance",
		Short:        "clientlance account and authentication API",
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "triplogctl",
		Short:        "Operate the transportation trip record service",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// A .env file is a local-development convenience; its absence is normal.
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newMigrateCmd(), newConsolidateCmd(), newTokenCmd())
	return root
}

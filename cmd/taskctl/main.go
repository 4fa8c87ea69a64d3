package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "taskctl",
		Short:        "Operational tasks for the task API",
		Long:         "Apply database migrations and sweep expired revoked tokens and verification links.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newMigrateCmd(), newSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Code-generation workflow orchestrator",
	Long: `Weft turns a free-text request into working code through a
decompose-implement-review loop.

The request is decomposed into ordered tasks, each task is dispatched to
a capability-scoped worker against a shared workspace, and a structured
review decides whether to iterate or finalize. Runs are recorded so past
outcomes stay inspectable.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(workersCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cascade",
	Short: "Parallel task orchestration engine",
	Long: `Cascade schedules a set of dependent work items into concurrent waves,
dispatches each item to an isolated executor under a per-item deadline,
and merges the heterogeneous results into one coherent outcome.

Core capabilities:
- Builds a dependency graph and batches independent items into waves
- Runs each wave's items concurrently, isolating failures per item
- Creates capability modules on demand and reconciles them after the run
- Merges results with kind-aware strategies and records every conflict`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(modulesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

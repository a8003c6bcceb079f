package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cascadekit/cascade/internal/config"
	"github.com/cascadekit/cascade/internal/state"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [run-id]",
	Short: "Show recent run history",
	Long: `Display recent runs recorded in the project state database, or the
full record of a single run when a run ID is given.

Shows per run:
  - Wave and item counts
  - Outcome tallies (succeeded / failed / timed out)
  - Merge conflicts and module churn
  - Wall-clock duration`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of runs to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := os.Stat(cfg.State.Path); os.IsNotExist(err) {
		fmt.Println("No runs recorded. Start one with 'cascade run --plan <plan.yaml>'.")
		return nil
	}

	db, err := state.Open(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate state database: %w", err)
	}

	if len(args) == 1 {
		return printRunRecord(db, args[0])
	}

	runs, err := db.ListRuns(statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Start one with 'cascade run --plan <plan.yaml>'.")
		return nil
	}

	fmt.Println("Recent runs:")
	for _, r := range runs {
		age := formatRunDuration(time.Since(r.Timestamp))
		fmt.Printf("  %s: %d waves, %d items (%d ok / %d failed / %d timed out)",
			r.RunID, r.WaveCount, r.ItemCount, r.Succeeded, r.Failed, r.TimedOut)
		if r.MergeConflicts > 0 {
			fmt.Printf(", %d conflicts", r.MergeConflicts)
		}
		if r.ResourcesCreated > 0 || r.ResourcesDeleted > 0 {
			fmt.Printf(", modules +%d/-%d", r.ResourcesCreated, r.ResourcesDeleted)
		}
		fmt.Printf(", took %s, %s ago\n", formatRunDuration(r.WallClockDuration), age)
	}
	return nil
}

// printRunRecord shows the full stored record of one run.
func printRunRecord(db *state.DB, runID string) error {
	rec, err := db.GetRun(runID)
	if err != nil {
		return fmt.Errorf("run %s not found", runID)
	}

	fmt.Printf("Run %s (%s)\n", rec.RunID, rec.Timestamp.Format(time.RFC3339))
	fmt.Printf("  Waves:     %d\n", rec.WaveCount)
	fmt.Printf("  Items:     %d (%d ok / %d failed / %d timed out)\n",
		rec.ItemCount, rec.Succeeded, rec.Failed, rec.TimedOut)
	fmt.Printf("  Conflicts: %d\n", rec.MergeConflicts)
	fmt.Printf("  Modules:   %d created, %d kept, %d deleted\n",
		rec.ResourcesCreated, rec.ResourcesKept, rec.ResourcesDeleted)
	fmt.Printf("  Duration:  %s\n", formatRunDuration(rec.WallClockDuration))
	return nil
}

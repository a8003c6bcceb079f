package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cascadekit/cascade/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long: `Display the configuration cascade resolves from defaults, the user
config file, the project-local .cascade.yaml, and CASCADE_* environment
variables.

User configuration lives at ` + "`~/.config/cascade/config.yaml`" + `.
Project-specific overrides go in .cascade.yaml at the repository root.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("engine.per_item_timeout: %s\n", cfg.Engine.PerItemTimeout)
		fmt.Printf("engine.max_parallel_items: %d\n", cfg.Engine.MaxParallelItems)
		fmt.Printf("engine.min_speedup_threshold: %g\n", cfg.Engine.MinSpeedupThreshold)
		fmt.Printf("retention.recent_days: %d\n", cfg.Retention.RecentDays)
		fmt.Printf("retention.stale_days: %d\n", cfg.Retention.StaleDays)
		fmt.Printf("modules.dir: %s\n", cfg.Modules.Dir)
		fmt.Printf("state.path: %s\n", cfg.State.Path)
		fmt.Printf("\nconfig file: %s\n", config.GetUserConfigPath())
	},
}

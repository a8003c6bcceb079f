package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cascadekit/cascade/internal/capability"
	"github.com/cascadekit/cascade/internal/config"
	"github.com/cascadekit/cascade/internal/engine"
	"github.com/cascadekit/cascade/internal/executor"
	"github.com/cascadekit/cascade/internal/state"
	"github.com/cascadekit/cascade/internal/tui"
	"github.com/cascadekit/cascade/pkg/models"
)

var (
	runPlanPath    string
	runWatch       bool
	runTimeout     time.Duration
	runMaxParallel int
	runStrategy    string
)

var runCmd = &cobra.Command{
	Use:   "run --plan <plan.yaml>",
	Short: "Run a plan of work items in dependency-ordered waves",
	Long: `Run the work items of a plan file.

Items are batched into waves by dependency analysis: every item's blockers
execute in an earlier wave, and items within one wave run concurrently. Each
item's payload is handed to the shell executor under a per-item deadline.
After every wave the outcomes are merged with a kind-aware strategy; after
the final wave, temporary capability modules are reconciled (kept or
deleted) and the run is recorded in the project state database.

Plan file format:

  items:
    - id: fetch-users
      kind: fetch
      payload: "curl -s https://internal/users"
    - id: summarize
      kind: read
      payload: "wc -l users.json"
      blocked_by: [fetch-users]
      requires: json-parser
      capability_spec: "parse json records"

Use --watch for a live view of wave and item progress.`,
	RunE: runPlan,
}

func init() {
	runCmd.Flags().StringVar(&runPlanPath, "plan", "", "Path to the yaml plan file (required)")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Show a live TUI while the run executes")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Per-item timeout (overrides config)")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "Max concurrent items per wave (overrides config)")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "", "Force a merge strategy instead of selecting by item kind")
	runCmd.MarkFlagRequired("plan")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	items, err := loadPlan(runPlanPath)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	logger := engine.NewDebugLoggerForDir(cwd)
	defer logger.Close()

	registry, err := capability.Open(cfg.Modules.Dir,
		capability.WithRetention(capability.RetentionPolicy{
			RecentDays: cfg.Retention.RecentDays,
			StaleDays:  cfg.Retention.StaleDays,
		}),
		capability.WithDebugLog(logger.Log),
	)
	if err != nil {
		return fmt.Errorf("open capability registry: %w", err)
	}

	// Keep-flag files dropped into the modules directory mark modules useful
	// while the run is in flight. The watcher is best-effort.
	if watcher, werr := capability.WatchFlags(registry); werr == nil {
		defer watcher.Close()
	} else {
		logger.Log("[cli] keep-flag watcher unavailable: %v", werr)
	}

	db, err := state.Open(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate state database: %w", err)
	}

	timeout := cfg.Engine.PerItemTimeout
	if runTimeout > 0 {
		timeout = runTimeout
	}
	maxParallel := cfg.Engine.MaxParallelItems
	if runMaxParallel > 0 {
		maxParallel = runMaxParallel
	}

	opts := []engine.Option{
		engine.WithPerItemTimeout(timeout),
		engine.WithMaxParallel(maxParallel),
		engine.WithMinSpeedupThreshold(cfg.Engine.MinSpeedupThreshold),
		engine.WithRegistry(registry),
		engine.WithStateStore(db),
		engine.WithLogger(logger),
	}
	if runStrategy != "" {
		opts = append(opts, engine.WithMergeStrategy(runStrategy))
	}

	var emitter *engine.EventEmitter
	if runWatch {
		emitter = engine.NewEventEmitter(256)
		opts = append(opts, engine.WithEmitter(emitter))
	}

	eng, err := engine.New(engine.RequiredConfig{
		Executor: executor.NewCommandExecutor(cwd),
	}, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report *models.RunReport
	if runWatch {
		report, err = runWithTUI(ctx, eng, emitter, items)
	} else {
		report, err = eng.Submit(ctx, items)
	}
	if err != nil {
		return err
	}

	printReport(report)
	if report.Final != nil && report.Final.Status == models.MergeFailed {
		// The report above already shows the failure; return an error so the
		// process exits non-zero after the deferred closes run.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return errors.New("final merge status is failed")
	}
	return nil
}

// runWithTUI runs the engine behind a live bubbletea view.
func runWithTUI(ctx context.Context, eng *engine.Engine, emitter *engine.EventEmitter, items []*models.WorkItem) (*models.RunReport, error) {
	type result struct {
		report *models.RunReport
		err    error
	}
	done := make(chan result, 1)

	go func() {
		report, err := eng.Submit(ctx, items)
		emitter.Close()
		done <- result{report, err}
	}()

	program := tea.NewProgram(tui.NewRunModel(emitter.Events()))
	if _, err := program.Run(); err != nil {
		return nil, fmt.Errorf("run view: %w", err)
	}

	res := <-done
	return res.report, res.err
}

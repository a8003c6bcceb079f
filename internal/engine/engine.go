package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cascadekit/cascade/internal/capability"
	"github.com/cascadekit/cascade/internal/executor"
	"github.com/cascadekit/cascade/internal/graph"
	"github.com/cascadekit/cascade/internal/merge"
	"github.com/cascadekit/cascade/internal/state"
	"github.com/cascadekit/cascade/internal/wave"
	"github.com/cascadekit/cascade/pkg/models"
)

// DefaultPerItemTimeout bounds each item's execution when no timeout is
// configured.
const DefaultPerItemTimeout = 5 * time.Minute

// Engine runs submissions: it analyzes dependencies, batches items into
// waves, dispatches each wave concurrently, merges outcomes, and reconciles
// temporary capability modules at the end of the run.
type Engine struct {
	exec                executor.ItemExecutor
	registry            *capability.Registry
	mergeRegistry       *merge.Registry
	strategyName        string
	store               state.RunStore
	logger              *DebugLogger
	emitter             *EventEmitter
	perItemTimeout      time.Duration
	maxParallel         int
	minSpeedupThreshold float64
	now                 func() time.Time
}

// New creates an Engine from required configuration plus options.
func New(req RequiredConfig, opts ...Option) (*Engine, error) {
	if req.Executor == nil {
		return nil, errors.New("engine: executor is required")
	}

	o := &engineOptions{
		perItemTimeout: DefaultPerItemTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.mergeRegistry == nil {
		o.mergeRegistry = merge.NewRegistry()
	}
	if o.logger == nil {
		o.logger = NopLogger()
	}
	setPackageLogger(o.logger)

	return &Engine{
		exec:                req.Executor,
		registry:            o.registry,
		mergeRegistry:       o.mergeRegistry,
		strategyName:        o.strategyName,
		store:               o.store,
		logger:              o.logger,
		emitter:             o.emitter,
		perItemTimeout:      o.perItemTimeout,
		maxParallel:         o.maxParallel,
		minSpeedupThreshold: o.minSpeedupThreshold,
		now:                 o.now,
	}, nil
}

// Events returns the emitter's channel, or nil if no emitter is configured.
func (e *Engine) Events() <-chan Event {
	if e.emitter == nil {
		return nil
	}
	return e.emitter.Events()
}

// Submit runs the given work items to completion and returns a full report.
// A cyclic dependency is fatal and surfaces before any module is created or
// any item dispatched. Everything after analysis is recorded in the report
// rather than returned as an error: item failures, merge conflicts, and
// reconciliation problems never abort the run.
func (e *Engine) Submit(ctx context.Context, items []*models.WorkItem) (*models.RunReport, error) {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("invalid work item: %w", err)
		}
	}

	g := graph.New()
	g.SetDebugLog(e.logger.Log)
	if err := g.Build(items); err != nil {
		return nil, err
	}
	waves, err := g.Waves()
	if err != nil {
		return nil, err
	}
	if e.shouldCollapse(waves, len(items)) {
		if waves, err = g.SequentialWaves(); err != nil {
			return nil, err
		}
	}

	report := &models.RunReport{
		RunID:     uuid.New().String()[:8],
		StartedAt: e.now(),
		Waves:     waves,
		Outcomes:  make(map[string]*models.Outcome, len(items)),
	}
	e.logger.Log("[engine] run %s: %d items in %d waves", report.RunID, len(items), len(waves))
	e.emit(Event{Type: EventRunStarted, RunID: report.RunID,
		Message: fmt.Sprintf("%d items in %d waves", len(items), len(waves))})

	createdBefore := 0
	if e.registry != nil {
		createdBefore = e.registry.CreatedCount()
	}

	wexec := e.waveExecutor(report.RunID)
	for i, w := range waves {
		if ctx.Err() != nil {
			e.abort(report, waves[i:], ctx.Err())
			break
		}

		ready := e.gate(report, w)
		e.emit(Event{Type: EventWaveStarted, RunID: report.RunID, WaveIndex: w.Index,
			Message: fmt.Sprintf("%d of %d items ready", len(ready.Items), len(w.Items))})

		for id, o := range wexec.Run(ctx, ready, e.perItemTimeout) {
			report.Outcomes[id] = o
		}

		waveMerge := merge.Merge(e.strategyFor(w.Items), e.outcomesFor(report, w))
		report.WaveMerges = append(report.WaveMerges, waveMerge)
		e.emit(Event{Type: EventMergeCompleted, RunID: report.RunID, WaveIndex: w.Index,
			Message: fmt.Sprintf("strategy=%s status=%s conflicts=%d",
				waveMerge.Strategy, waveMerge.Status, len(waveMerge.Conflicts))})
	}

	report.Final = merge.Merge(e.strategyFor(items), report.Outcomes)

	if e.registry != nil {
		decisions, rerr := e.registry.Reconcile()
		if rerr != nil {
			// Deletion failures are non-fatal; the modules stay active and
			// are retried at the next reconciliation.
			e.logger.Log("[engine] run %s: reconciliation errors: %v", report.RunID, rerr)
		}
		report.Reconciliation = decisions
		report.ResourcesCreated = e.registry.CreatedCount() - createdBefore
	}

	report.FinishedAt = e.now()
	e.persist(report)
	e.emit(Event{Type: EventRunCompleted, RunID: report.RunID,
		Message: string(report.Final.Status)})
	return report, nil
}

// shouldCollapse reports whether the parallelism ratio (items per wave) is
// below the configured threshold, in which case the plan is re-batched into
// one-item waves. The dependency order is preserved; only the batching
// changes.
func (e *Engine) shouldCollapse(waves []models.Wave, itemCount int) bool {
	if e.minSpeedupThreshold <= 0 || len(waves) == 0 {
		return false
	}
	ratio := float64(itemCount) / float64(len(waves))
	if ratio >= e.minSpeedupThreshold {
		return false
	}
	e.logger.Log("[engine] parallelism ratio %.2f below threshold %.2f, running sequentially",
		ratio, e.minSpeedupThreshold)
	return true
}

// waveExecutor builds the per-run wave executor with hooks wired to the
// event emitter.
func (e *Engine) waveExecutor(runID string) *wave.Executor {
	opts := []wave.Option{
		wave.WithMaxParallel(e.maxParallel),
		wave.WithDebugLog(e.logger.Log),
		wave.WithHooks(wave.Hooks{
			OnItemStart: func(item *models.WorkItem) {
				e.emit(Event{Type: EventItemStarted, RunID: runID, ItemID: item.ID})
			},
			OnItemDone: func(o *models.Outcome) {
				ev := Event{RunID: runID, WaveIndex: o.WaveIndex, ItemID: o.ItemID,
					Status: o.Status, Message: o.Error}
				switch o.Status {
				case models.OutcomeSuccess:
					ev.Type = EventItemCompleted
				case models.OutcomeTimedOut:
					ev.Type = EventItemTimedOut
				default:
					ev.Type = EventItemFailed
				}
				e.emit(ev)
			},
		}),
	}
	if e.registry != nil {
		opts = append(opts, wave.WithResolver(e.registry))
	}
	return wave.New(e.exec, opts...)
}

// gate filters a wave down to items whose dependencies all succeeded.
// Blocked items receive a failed outcome without being dispatched.
func (e *Engine) gate(report *models.RunReport, w models.Wave) models.Wave {
	ready := models.Wave{Index: w.Index}
	for _, item := range w.Items {
		if blockedOn := e.failedDependency(report, item); blockedOn != "" {
			e.logger.Log("[engine] item %s blocked: dependency %s did not succeed", item.ID, blockedOn)
			report.Outcomes[item.ID] = e.undispatched(report.RunID, w.Index, item,
				fmt.Sprintf("dependency %s did not succeed", blockedOn))
			continue
		}
		ready.Items = append(ready.Items, item)
	}
	return ready
}

// failedDependency returns the first dependency of item whose outcome is not
// a success, or "" when the item is clear to dispatch.
func (e *Engine) failedDependency(report *models.RunReport, item *models.WorkItem) string {
	for _, dep := range item.BlockedBy {
		o, ok := report.Outcomes[dep]
		if !ok || o.Status != models.OutcomeSuccess {
			return dep
		}
	}
	return ""
}

// abort records failed outcomes for every undispatched item in the remaining
// waves so that the report still covers each item exactly once.
func (e *Engine) abort(report *models.RunReport, remaining []models.Wave, cause error) {
	report.Aborted = true
	e.logger.Log("[engine] run %s aborted: %v (%d waves not launched)", report.RunID, cause, len(remaining))
	for _, w := range remaining {
		for _, item := range w.Items {
			if _, ok := report.Outcomes[item.ID]; ok {
				continue
			}
			report.Outcomes[item.ID] = e.undispatched(report.RunID, w.Index, item, "run aborted: "+cause.Error())
		}
	}
}

// undispatched builds a failed outcome for an item that never reached the
// executor.
func (e *Engine) undispatched(runID string, waveIndex int, item *models.WorkItem, reason string) *models.Outcome {
	now := e.now()
	o := &models.Outcome{
		ItemID:     item.ID,
		WaveIndex:  waveIndex,
		Status:     models.OutcomeFailed,
		Error:      reason,
		StartedAt:  now,
		FinishedAt: now,
	}
	e.emit(Event{Type: EventItemFailed, RunID: runID, WaveIndex: waveIndex,
		ItemID: item.ID, Status: o.Status, Message: reason})
	return o
}

// outcomesFor collects the recorded outcomes for the items of one wave.
func (e *Engine) outcomesFor(report *models.RunReport, w models.Wave) map[string]*models.Outcome {
	out := make(map[string]*models.Outcome, len(w.Items))
	for _, item := range w.Items {
		if o, ok := report.Outcomes[item.ID]; ok {
			out[item.ID] = o
		}
	}
	return out
}

// strategyFor selects the merge strategy: the configured override if set,
// otherwise the binding for the dominant item kind.
func (e *Engine) strategyFor(items []*models.WorkItem) merge.Strategy {
	if e.strategyName != "" {
		if s, err := e.mergeRegistry.Get(e.strategyName); err == nil {
			return s
		}
		e.logger.Log("[engine] unknown merge strategy %q, selecting by kind", e.strategyName)
	}
	return e.mergeRegistry.ForKind(merge.DominantKind(items))
}

// persist saves the structured run record. Persistence failures never fail
// the run.
func (e *Engine) persist(report *models.RunReport) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveRun(report.Record()); err != nil {
		e.logger.Log("[engine] run %s: failed to persist run record: %v", report.RunID, err)
	}
}

// emit sends an event with the current timestamp if an emitter is configured.
func (e *Engine) emit(ev Event) {
	if e.emitter == nil {
		return
	}
	ev.Timestamp = e.now()
	e.emitter.Emit(ev)
}

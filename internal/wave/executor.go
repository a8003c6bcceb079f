// Package wave runs one wave of work items: every item is dispatched to its
// own goroutine under a per-item deadline, and outcomes are collected with
// exactly one entry per item. Item failures never affect siblings.
package wave

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cascadekit/cascade/internal/executor"
	"github.com/cascadekit/cascade/pkg/models"
)

// CapabilityResolver is the slice of the resource lifecycle manager the wave
// executor needs: an atomic find-or-create by name.
type CapabilityResolver interface {
	Resolve(name, spec string) (*models.CapabilityModule, error)
}

// Hooks are optional callbacks fired as items progress. They are invoked
// from worker goroutines and must be safe for concurrent use.
type Hooks struct {
	// OnItemStart fires when an item is dispatched.
	OnItemStart func(item *models.WorkItem)
	// OnItemDone fires when an item's outcome is recorded.
	OnItemDone func(outcome *models.Outcome)
}

// Executor dispatches the items of one wave concurrently. It is stateless
// across waves and performs no retries; re-submission is the caller's call.
type Executor struct {
	exec        executor.ItemExecutor
	resolver    CapabilityResolver
	maxParallel int64
	hooks       Hooks
	debugLog    func(format string, args ...interface{})
}

// Option configures an Executor.
type Option func(*Executor)

// WithResolver wires the capability resolver used for items that declare a
// RequiredCapability. Without one, such items fail before dispatch.
func WithResolver(r CapabilityResolver) Option {
	return func(e *Executor) { e.resolver = r }
}

// WithMaxParallel caps the number of concurrently running items per wave.
// Zero or negative means unbounded.
func WithMaxParallel(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxParallel = int64(n)
		}
	}
}

// WithHooks sets the progress callbacks.
func WithHooks(h Hooks) Option {
	return func(e *Executor) { e.hooks = h }
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(e *Executor) {
		if fn != nil {
			e.debugLog = fn
		}
	}
}

// New creates a wave executor dispatching to exec.
func New(exec executor.ItemExecutor, opts ...Option) *Executor {
	e := &Executor{
		exec:     exec,
		debugLog: func(format string, args ...interface{}) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every item in the wave and returns a mapping of item ID to
// outcome covering each item exactly once. The per-item timeout applies from
// dispatch; cancellation of ctx stops undispatched items but lets in-flight
// ones drain to completion or timeout.
func (e *Executor) Run(ctx context.Context, wave models.Wave, timeout time.Duration) map[string]*models.Outcome {
	outcomes := make([]*models.Outcome, len(wave.Items))

	var sem *semaphore.Weighted
	if e.maxParallel > 0 {
		sem = semaphore.NewWeighted(e.maxParallel)
	}

	e.debugLog("[wave] wave %d: dispatching %d items (timeout=%s, maxParallel=%d)",
		wave.Index, len(wave.Items), timeout, e.maxParallel)

	var wg sync.WaitGroup
	for i, item := range wave.Items {
		wg.Add(1)
		go func(i int, item *models.WorkItem) {
			defer wg.Done()
			outcomes[i] = e.runItem(ctx, wave.Index, item, timeout, sem)
			if e.hooks.OnItemDone != nil {
				e.hooks.OnItemDone(outcomes[i])
			}
		}(i, item)
	}
	wg.Wait()

	result := make(map[string]*models.Outcome, len(outcomes))
	for _, o := range outcomes {
		result[o.ItemID] = o
	}
	return result
}

// runItem executes a single item and produces its outcome.
func (e *Executor) runItem(ctx context.Context, waveIndex int, item *models.WorkItem, timeout time.Duration, sem *semaphore.Weighted) *models.Outcome {
	outcome := &models.Outcome{
		ItemID:    item.ID,
		WaveIndex: waveIndex,
		StartedAt: time.Now(),
	}
	finish := func() *models.Outcome {
		outcome.FinishedAt = time.Now()
		return outcome
	}

	if err := ctx.Err(); err != nil {
		outcome.Status = models.OutcomeFailed
		outcome.Error = "not dispatched: " + err.Error()
		return finish()
	}

	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			outcome.Status = models.OutcomeFailed
			outcome.Error = "not dispatched: " + err.Error()
			return finish()
		}
		defer sem.Release(1)
	}

	// Capability resolution happens before dispatch; failure means the item
	// never reaches the executor but siblings are unaffected.
	if item.RequiredCapability != "" {
		if e.resolver == nil {
			outcome.Status = models.OutcomeFailed
			outcome.Error = "no capability resolver configured for " + item.RequiredCapability
			return finish()
		}
		if _, err := e.resolver.Resolve(item.RequiredCapability, item.CapabilitySpec); err != nil {
			e.debugLog("[wave] item %s: capability resolution failed: %v", item.ID, err)
			outcome.Status = models.OutcomeFailed
			outcome.Error = err.Error()
			return finish()
		}
	}

	if e.hooks.OnItemStart != nil {
		e.hooks.OnItemStart(item)
	}

	itemCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		itemCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	outcome.StartedAt = time.Now()
	output, err := e.exec.Execute(itemCtx, item.Payload)
	outcome.Output = output

	// An executor that returned without error finished its work, even if the
	// deadline fired while it was wrapping up; only an error caused by the
	// expired deadline counts as a timeout.
	switch {
	case err != nil && errors.Is(itemCtx.Err(), context.DeadlineExceeded):
		e.debugLog("[wave] item %s: timed out after %s", item.ID, timeout)
		outcome.Status = models.OutcomeTimedOut
		outcome.Error = "deadline of " + timeout.String() + " exceeded"
	case err != nil:
		e.debugLog("[wave] item %s: failed: %v", item.ID, err)
		outcome.Status = models.OutcomeFailed
		outcome.Error = err.Error()
	default:
		outcome.Status = models.OutcomeSuccess
	}
	return finish()
}

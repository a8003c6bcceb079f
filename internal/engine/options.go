package engine

import (
	"time"

	"github.com/cascadekit/cascade/internal/capability"
	"github.com/cascadekit/cascade/internal/executor"
	"github.com/cascadekit/cascade/internal/merge"
	"github.com/cascadekit/cascade/internal/state"
)

// RequiredConfig contains the minimal required configuration for an Engine.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// Executor runs the payload of a single work item.
	Executor executor.ItemExecutor
}

// Option configures an Engine. Use With* functions to create Options.
type Option func(*engineOptions)

// engineOptions holds all optional configuration used during construction.
type engineOptions struct {
	perItemTimeout      time.Duration
	maxParallel         int
	minSpeedupThreshold float64
	strategyName        string
	mergeRegistry       *merge.Registry
	registry            *capability.Registry
	store               state.RunStore
	logger              *DebugLogger
	emitter             *EventEmitter
	now                 func() time.Time
}

// WithPerItemTimeout sets the deadline applied to each dispatched item.
func WithPerItemTimeout(d time.Duration) Option {
	return func(o *engineOptions) { o.perItemTimeout = d }
}

// WithMaxParallel caps concurrent items per wave. Zero means unbounded.
func WithMaxParallel(n int) Option {
	return func(o *engineOptions) { o.maxParallel = n }
}

// WithMinSpeedupThreshold collapses the plan to sequential single-item waves
// when the ratio of items to waves falls below the threshold. Zero disables
// the check.
func WithMinSpeedupThreshold(t float64) Option {
	return func(o *engineOptions) { o.minSpeedupThreshold = t }
}

// WithMergeStrategy forces a named merge strategy for every merge instead of
// selecting by dominant item kind.
func WithMergeStrategy(name string) Option {
	return func(o *engineOptions) { o.strategyName = name }
}

// WithMergeRegistry sets a custom merge strategy registry (mainly for
// registering additional strategies).
func WithMergeRegistry(r *merge.Registry) Option {
	return func(o *engineOptions) { o.mergeRegistry = r }
}

// WithRegistry wires the capability module registry. Without one, items that
// declare a required capability fail before dispatch.
func WithRegistry(r *capability.Registry) Option {
	return func(o *engineOptions) { o.registry = r }
}

// WithStateStore wires the run-record store. Persistence failures are logged
// and never fail the run.
func WithStateStore(s state.RunStore) Option {
	return func(o *engineOptions) { o.store = s }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithEmitter sets the event emitter subscribers read from.
func WithEmitter(e *EventEmitter) Option {
	return func(o *engineOptions) { o.emitter = e }
}

// WithClock sets the time source (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) { o.now = now }
}

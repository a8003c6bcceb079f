// Package engine coordinates a run end to end: dependency analysis, wave
// batching, concurrent dispatch, result merging, and resource reconciliation.
package engine

import (
	"time"

	"github.com/cascadekit/cascade/pkg/models"
)

// EventType represents the type of engine event.
type EventType string

const (
	// EventRunStarted indicates a submission has been accepted and analyzed.
	EventRunStarted EventType = "run_started"
	// EventWaveStarted indicates a wave is about to dispatch.
	EventWaveStarted EventType = "wave_started"
	// EventItemStarted indicates an item has been dispatched to the executor.
	EventItemStarted EventType = "item_started"
	// EventItemCompleted indicates an item finished successfully.
	EventItemCompleted EventType = "item_completed"
	// EventItemFailed indicates an item failed.
	EventItemFailed EventType = "item_failed"
	// EventItemTimedOut indicates an item exceeded its deadline.
	EventItemTimedOut EventType = "item_timed_out"
	// EventMergeCompleted indicates a wave merge has been recorded.
	EventMergeCompleted EventType = "merge_completed"
	// EventRunCompleted indicates the run is over and the report is final.
	EventRunCompleted EventType = "run_completed"
)

// Event is emitted as a run progresses. Subscribers (the TUI, primarily)
// receive these over the emitter's channel.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// RunID identifies the run the event belongs to.
	RunID string
	// WaveIndex is the wave the event relates to, if applicable.
	WaveIndex int
	// ItemID is the ID of the related work item, if applicable.
	ItemID string
	// Status carries the outcome status for item completion events.
	Status models.OutcomeStatus
	// Message provides additional context about the event.
	Message string
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

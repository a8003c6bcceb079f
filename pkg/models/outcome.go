package models

import "time"

// OutcomeStatus represents the terminal state of one work item's execution.
type OutcomeStatus string

const (
	// OutcomeSuccess indicates the executor completed normally.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeFailed indicates the executor (or a resolution step) errored.
	OutcomeFailed OutcomeStatus = "failed"
	// OutcomeTimedOut indicates the per-item deadline expired.
	OutcomeTimedOut OutcomeStatus = "timed_out"
)

// Valid returns true if the status is a known value.
func (s OutcomeStatus) Valid() bool {
	switch s {
	case OutcomeSuccess, OutcomeFailed, OutcomeTimedOut:
		return true
	default:
		return false
	}
}

// Outcome is the result of running one work item. It is created exactly once
// per item per run by the wave executor and never mutated afterwards, so
// readers need no locking.
type Outcome struct {
	// ItemID is the work item this outcome belongs to.
	ItemID string `json:"item_id"`
	// WaveIndex is the index of the wave the item ran in.
	WaveIndex int `json:"wave_index"`
	// Status is the terminal state of the execution attempt.
	Status OutcomeStatus `json:"status"`
	// Output is the executor's opaque output. Populated on success; may
	// carry partial output on failure.
	Output string `json:"output,omitempty"`
	// Error describes the failure. Present iff Status != OutcomeSuccess.
	Error string `json:"error,omitempty"`
	// StartedAt is when the item was dispatched.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the outcome was recorded.
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall-clock time the item spent executing.
func (o *Outcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

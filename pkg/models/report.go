package models

import "time"

// MergeStatus represents the combined status of a merge operation.
type MergeStatus string

const (
	// MergeSuccess indicates every merged outcome met the strategy's bar.
	MergeSuccess MergeStatus = "success"
	// MergePartial indicates a mix of successful and unsuccessful outcomes.
	MergePartial MergeStatus = "partial"
	// MergeFailed indicates no outcome met the strategy's bar.
	MergeFailed MergeStatus = "failed"
)

// Conflict records two or more items claiming overlapping shared state,
// together with the resolution that was applied. Resolutions are always
// recorded, never silent.
type Conflict struct {
	// Artifact is the name of the contested artifact.
	Artifact string `json:"artifact"`
	// ItemIDs are the items that claimed the artifact, in ID order.
	ItemIDs []string `json:"item_ids"`
	// WinnerID is the item whose claim was kept.
	WinnerID string `json:"winner_id"`
	// Resolution describes how the winner was chosen.
	Resolution string `json:"resolution"`
}

// MergeResult is the combined output of a wave or of a whole run. It is
// created once per merge operation and immutable afterwards.
type MergeResult struct {
	// Strategy is the name of the strategy that produced this result.
	Strategy string `json:"strategy"`
	// Status summarizes the merged outcomes.
	Status MergeStatus `json:"status"`
	// MergedOutput is the strategy-specific combined output, presented in
	// item-ID order for reproducibility.
	MergedOutput string `json:"merged_output"`
	// Conflicts lists detected conflicts and their resolutions.
	Conflicts []Conflict `json:"conflicts,omitempty"`
	// PerItem maps item ID to its outcome.
	PerItem map[string]*Outcome `json:"per_item"`
}

// RunReport is the full result of one engine submission: the waves actually
// executed, every outcome, every merge result, and the end-of-run resource
// reconciliation summary.
type RunReport struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`
	// StartedAt and FinishedAt bound the run's wall-clock duration.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Waves are the waves in execution order.
	Waves []Wave `json:"waves"`
	// Outcomes maps item ID to its outcome, exactly one entry per item.
	Outcomes map[string]*Outcome `json:"outcomes"`
	// WaveMerges holds the per-wave merge results in wave order.
	WaveMerges []*MergeResult `json:"wave_merges"`
	// Final is the run-level merge across all outcomes.
	Final *MergeResult `json:"final"`
	// Reconciliation lists the keep/delete decisions for temporary modules.
	Reconciliation []ReconcileDecision `json:"reconciliation,omitempty"`
	// ResourcesCreated counts capability modules created during the run.
	ResourcesCreated int `json:"resources_created"`
	// Aborted is true if the run stopped launching waves early.
	Aborted bool `json:"aborted"`
}

// Counts tallies outcomes by status.
func (r *RunReport) Counts() (succeeded, failed, timedOut int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case OutcomeSuccess:
			succeeded++
		case OutcomeTimedOut:
			timedOut++
		default:
			failed++
		}
	}
	return succeeded, failed, timedOut
}

// RunRecord is the structured per-run summary handed to the persistent
// run-record store.
type RunRecord struct {
	RunID             string        `json:"run_id"`
	Timestamp         time.Time     `json:"timestamp"`
	WaveCount         int           `json:"wave_count"`
	ItemCount         int           `json:"item_count"`
	Succeeded         int           `json:"succeeded"`
	Failed            int           `json:"failed"`
	TimedOut          int           `json:"timed_out"`
	MergeConflicts    int           `json:"merge_conflicts"`
	ResourcesCreated  int           `json:"resources_created"`
	ResourcesKept     int           `json:"resources_kept"`
	ResourcesDeleted  int           `json:"resources_deleted"`
	WallClockDuration time.Duration `json:"wall_clock_duration"`
}

// Record derives the structured run record from the report.
func (r *RunReport) Record() RunRecord {
	succeeded, failed, timedOut := r.Counts()

	// Count each contested artifact once. Same-wave conflicts show up in
	// both the wave merge and the final merge; cross-wave ones only in the
	// final merge.
	contested := make(map[string]bool)
	for _, m := range r.WaveMerges {
		for _, c := range m.Conflicts {
			contested[c.Artifact] = true
		}
	}
	if r.Final != nil {
		for _, c := range r.Final.Conflicts {
			contested[c.Artifact] = true
		}
	}

	kept, deleted := 0, 0
	for _, d := range r.Reconciliation {
		if d.Action == ActionDelete {
			deleted++
		} else {
			kept++
		}
	}

	return RunRecord{
		RunID:             r.RunID,
		Timestamp:         r.StartedAt,
		WaveCount:         len(r.Waves),
		ItemCount:         len(r.Outcomes),
		Succeeded:         succeeded,
		Failed:            failed,
		TimedOut:          timedOut,
		MergeConflicts:    len(contested),
		ResourcesCreated:  r.ResourcesCreated,
		ResourcesKept:     kept,
		ResourcesDeleted:  deleted,
		WallClockDuration: r.FinishedAt.Sub(r.StartedAt),
	}
}

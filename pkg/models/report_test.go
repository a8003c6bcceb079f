package models

import (
	"testing"
	"time"
)

func TestRunReportCounts(t *testing.T) {
	report := &RunReport{
		Outcomes: map[string]*Outcome{
			"a": {ItemID: "a", Status: OutcomeSuccess},
			"b": {ItemID: "b", Status: OutcomeFailed},
			"c": {ItemID: "c", Status: OutcomeTimedOut},
			"d": {ItemID: "d", Status: OutcomeSuccess},
		},
	}

	succeeded, failed, timedOut := report.Counts()
	if succeeded != 2 {
		t.Errorf("expected 2 succeeded, got %d", succeeded)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed, got %d", failed)
	}
	if timedOut != 1 {
		t.Errorf("expected 1 timed out, got %d", timedOut)
	}
}

func TestRunReportRecord(t *testing.T) {
	started := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	report := &RunReport{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Waves: []Wave{
			{Index: 0, Items: []*WorkItem{{ID: "a"}, {ID: "b"}}},
			{Index: 1, Items: []*WorkItem{{ID: "c"}}},
		},
		Outcomes: map[string]*Outcome{
			"a": {ItemID: "a", Status: OutcomeSuccess},
			"b": {ItemID: "b", Status: OutcomeSuccess},
			"c": {ItemID: "c", Status: OutcomeFailed},
		},
		WaveMerges: []*MergeResult{
			{Conflicts: []Conflict{{Artifact: "config.yaml"}}},
			{},
		},
		Reconciliation: []ReconcileDecision{
			{Module: "m1", Action: ActionKeep, Reason: "proven value"},
			{Module: "m2", Action: ActionDelete, Reason: "stale"},
		},
		ResourcesCreated: 2,
	}

	rec := report.Record()
	if rec.RunID != "run-1" {
		t.Errorf("expected run id run-1, got %s", rec.RunID)
	}
	if rec.WaveCount != 2 {
		t.Errorf("expected 2 waves, got %d", rec.WaveCount)
	}
	if rec.ItemCount != 3 {
		t.Errorf("expected 3 items, got %d", rec.ItemCount)
	}
	if rec.Succeeded != 2 || rec.Failed != 1 || rec.TimedOut != 0 {
		t.Errorf("unexpected counts: %+v", rec)
	}
	if rec.MergeConflicts != 1 {
		t.Errorf("expected 1 merge conflict, got %d", rec.MergeConflicts)
	}
	if rec.ResourcesCreated != 2 || rec.ResourcesKept != 1 || rec.ResourcesDeleted != 1 {
		t.Errorf("unexpected resource counts: %+v", rec)
	}
	if rec.WallClockDuration != 90*time.Second {
		t.Errorf("expected 90s duration, got %s", rec.WallClockDuration)
	}
}

func TestRunReportRecordCountsCrossWaveConflicts(t *testing.T) {
	// Items in different waves contest the same artifact. No single wave
	// merge can see both claims; only the final merge records the conflict.
	report := &RunReport{
		RunID: "run-2",
		Outcomes: map[string]*Outcome{
			"a": {ItemID: "a", Status: OutcomeSuccess},
			"b": {ItemID: "b", Status: OutcomeSuccess},
		},
		WaveMerges: []*MergeResult{{}, {}},
		Final: &MergeResult{
			Conflicts: []Conflict{{Artifact: "state.json", ItemIDs: []string{"a", "b"}, WinnerID: "a"}},
		},
	}

	if got := report.Record().MergeConflicts; got != 1 {
		t.Errorf("expected cross-wave conflict to be counted, got %d", got)
	}
}

func TestRunReportRecordDeduplicatesSameWaveConflicts(t *testing.T) {
	// A same-wave conflict is seen by both its wave merge and the final
	// merge; it must count once.
	report := &RunReport{
		RunID:    "run-3",
		Outcomes: map[string]*Outcome{"a": {ItemID: "a", Status: OutcomeSuccess}},
		WaveMerges: []*MergeResult{
			{Conflicts: []Conflict{{Artifact: "config.yaml", ItemIDs: []string{"a", "b"}, WinnerID: "a"}}},
		},
		Final: &MergeResult{
			Conflicts: []Conflict{{Artifact: "config.yaml", ItemIDs: []string{"a", "b"}, WinnerID: "a"}},
		},
	}

	if got := report.Record().MergeConflicts; got != 1 {
		t.Errorf("expected duplicated conflict to count once, got %d", got)
	}
}

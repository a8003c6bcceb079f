package merge

import (
	"testing"

	"github.com/cascadekit/cascade/pkg/models"
)

func artifactOutcome(id string, wave int, artifact, content string) *models.Outcome {
	return &models.Outcome{
		ItemID:    id,
		WaveIndex: wave,
		Status:    models.OutcomeSuccess,
		Output:    "artifacts:\n  " + artifact + ": " + content + "\n",
	}
}

func TestConflictSameWaveLowerIDWins(t *testing.T) {
	// Two items in the same wave both modify config.yaml with different
	// content: one conflict, lower item ID wins.
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	result := Merge(s, outcomeMap(
		artifactOutcome("item-1", 0, "config.yaml", "aaa"),
		artifactOutcome("item-2", 0, "config.yaml", "bbb"),
	))

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(result.Conflicts))
	}
	c := result.Conflicts[0]
	if c.Artifact != "config.yaml" {
		t.Errorf("expected artifact config.yaml, got %s", c.Artifact)
	}
	if c.WinnerID != "item-1" {
		t.Errorf("expected item-1 to win same-wave tie-break, got %s", c.WinnerID)
	}
	if c.Resolution != "kept item-1 (lower item id)" {
		t.Errorf("unexpected resolution: %q", c.Resolution)
	}
	if len(c.ItemIDs) != 2 {
		t.Errorf("expected both claimants recorded, got %v", c.ItemIDs)
	}
}

func TestConflictEarlierWaveWins(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	result := Merge(s, outcomeMap(
		artifactOutcome("zz-early", 0, "schema.sql", "v1"),
		artifactOutcome("aa-late", 1, "schema.sql", "v2"),
	))

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(result.Conflicts))
	}
	c := result.Conflicts[0]
	if c.WinnerID != "zz-early" {
		t.Errorf("expected earlier wave to win regardless of id, got %s", c.WinnerID)
	}
	if c.Resolution != "kept zz-early (earlier wave)" {
		t.Errorf("unexpected resolution: %q", c.Resolution)
	}
}

func TestNoConflictOnIdenticalContent(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	result := Merge(s, outcomeMap(
		artifactOutcome("a", 0, "config.yaml", "same"),
		artifactOutcome("b", 0, "config.yaml", "same"),
	))

	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflict for identical content, got %v", result.Conflicts)
	}
}

func TestNoConflictOnDistinctArtifacts(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	result := Merge(s, outcomeMap(
		artifactOutcome("a", 0, "one.txt", "x"),
		artifactOutcome("b", 0, "two.txt", "y"),
	))

	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", result.Conflicts)
	}
}

func TestOpaqueOutputsMakeNoClaims(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	result := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, "plain text output, not yaml"),
		outcome("b", models.OutcomeSuccess, "=== weird === {{"),
	))

	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflicts from opaque outputs, got %v", result.Conflicts)
	}
}

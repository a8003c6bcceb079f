package merge

import (
	"testing"

	"github.com/cascadekit/cascade/pkg/models"
)

func outcome(id string, status models.OutcomeStatus, output string) *models.Outcome {
	return &models.Outcome{ItemID: id, Status: status, Output: output}
}

func outcomeMap(outcomes ...*models.Outcome) map[string]*models.Outcome {
	m := make(map[string]*models.Outcome, len(outcomes))
	for _, o := range outcomes {
		m[o.ItemID] = o
	}
	return m
}

func mustGet(t *testing.T, r *Registry, name string) Strategy {
	t.Helper()
	s, err := r.Get(name)
	if err != nil {
		t.Fatalf("get strategy %s: %v", name, err)
	}
	return s
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{
		StrategyAggregateStatus, StrategyConcatenate, StrategyDeduplicateRank,
		StrategyNumericSum, StrategyVerifyAll,
	} {
		if _, err := r.Get(name); err != nil {
			t.Errorf("expected built-in strategy %s: %v", name, err)
		}
	}

	if _, err := r.Get("nope"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestForKindBindings(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		kind string
		want string
	}{
		{"read", StrategyConcatenate},
		{"fetch", StrategyConcatenate},
		{"scan", StrategyDeduplicateRank},
		{"check", StrategyNumericSum},
		{"verify", StrategyVerifyAll},
		{"anything-else", StrategyAggregateStatus},
	}
	for _, tt := range tests {
		if got := r.ForKind(tt.kind).Name(); got != tt.want {
			t.Errorf("kind %s: expected %s, got %s", tt.kind, tt.want, got)
		}
	}
}

func TestDominantKind(t *testing.T) {
	items := []*models.WorkItem{
		{ID: "1", Kind: "read"},
		{ID: "2", Kind: "read"},
		{ID: "3", Kind: "verify"},
	}
	if got := DominantKind(items); got != "read" {
		t.Errorf("expected read, got %s", got)
	}

	// Tie breaks to the lexicographically smallest kind.
	tied := []*models.WorkItem{
		{ID: "1", Kind: "scan"},
		{ID: "2", Kind: "check"},
	}
	if got := DominantKind(tied); got != "check" {
		t.Errorf("expected check on tie, got %s", got)
	}
}

func TestAggregateStatus(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	result := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, ""),
		outcome("b", models.OutcomeFailed, ""),
		outcome("c", models.OutcomeTimedOut, ""),
	))

	if result.Status != models.MergePartial {
		t.Errorf("expected partial, got %s", result.Status)
	}
	want := "succeeded: a\nfailed: b\ntimed_out: c"
	if result.MergedOutput != want {
		t.Errorf("expected %q, got %q", want, result.MergedOutput)
	}
}

func TestAggregateStatusAllOutcomes(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	allOK := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, ""),
		outcome("b", models.OutcomeSuccess, ""),
	))
	if allOK.Status != models.MergeSuccess {
		t.Errorf("expected success, got %s", allOK.Status)
	}

	allBad := Merge(s, outcomeMap(
		outcome("a", models.OutcomeFailed, ""),
		outcome("b", models.OutcomeTimedOut, ""),
	))
	if allBad.Status != models.MergeFailed {
		t.Errorf("expected failed, got %s", allBad.Status)
	}
}

func TestConcatenateOrderedByID(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyConcatenate)

	result := Merge(s, outcomeMap(
		outcome("b", models.OutcomeSuccess, "second"),
		outcome("a", models.OutcomeSuccess, "first"),
	))

	want := "=== a ===\nfirst\n=== b ===\nsecond"
	if result.MergedOutput != want {
		t.Errorf("expected %q, got %q", want, result.MergedOutput)
	}
}

func TestMergeDeterministicAcrossInsertionOrders(t *testing.T) {
	r := NewRegistry()

	build := func(ids ...string) map[string]*models.Outcome {
		m := make(map[string]*models.Outcome)
		for _, id := range ids {
			m[id] = outcome(id, models.OutcomeSuccess, "out-"+id)
		}
		return m
	}

	for _, name := range []string{StrategyAggregateStatus, StrategyConcatenate} {
		s := mustGet(t, r, name)
		first := Merge(s, build("c", "a", "b")).MergedOutput
		second := Merge(s, build("b", "c", "a")).MergedOutput
		if first != second {
			t.Errorf("%s: merge output depends on construction order:\n%q\nvs\n%q", name, first, second)
		}
	}
}

func TestDeduplicateRank(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyDeduplicateRank)

	result := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, "alpha\nbeta"),
		outcome("b", models.OutcomeSuccess, "beta\ngamma"),
		outcome("c", models.OutcomeSuccess, "beta"),
	))

	// beta appears 3 times and ranks first; alpha and gamma keep first-seen order.
	want := "beta\nalpha\ngamma\n\nduplicates_removed: 2"
	if result.MergedOutput != want {
		t.Errorf("expected %q, got %q", want, result.MergedOutput)
	}
	if result.Status != models.MergeSuccess {
		t.Errorf("expected success, got %s", result.Status)
	}
}

func TestNumericSum(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyNumericSum)

	result := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, "passed: 3\nfailed: 0"),
		outcome("b", models.OutcomeSuccess, "passed: 4\nfailed: 0"),
	))

	want := "failed: 0\npassed: 7"
	if result.MergedOutput != want {
		t.Errorf("expected %q, got %q", want, result.MergedOutput)
	}
	if result.Status != models.MergeSuccess {
		t.Errorf("expected success, got %s", result.Status)
	}
}

func TestNumericSumFailureCountFailsMerge(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyNumericSum)

	result := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, "passed: 3\nfailed: 1"),
		outcome("b", models.OutcomeSuccess, "passed: 4\nfailed: 0"),
	))

	if result.Status != models.MergeFailed {
		t.Errorf("expected failed when failure count > 0, got %s", result.Status)
	}
}

func TestVerifyAll(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyVerifyAll)

	allVerified := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, "verified: true"),
		outcome("b", models.OutcomeSuccess, "checks done\nverified: true"),
	))
	if allVerified.Status != models.MergeSuccess {
		t.Errorf("expected success, got %s", allVerified.Status)
	}
	if len(allVerified.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", allVerified.Conflicts)
	}

	oneMissing := Merge(s, outcomeMap(
		outcome("a", models.OutcomeSuccess, "verified: true"),
		outcome("b", models.OutcomeSuccess, "looks fine"),
	))
	if oneMissing.Status != models.MergeFailed {
		t.Errorf("expected failed, got %s", oneMissing.Status)
	}
	if len(oneMissing.Conflicts) != 1 || oneMissing.Conflicts[0].ItemIDs[0] != "b" {
		t.Errorf("expected conflict naming b, got %v", oneMissing.Conflicts)
	}
}

func TestMergeEmptyOutcomes(t *testing.T) {
	r := NewRegistry()
	s := mustGet(t, r, StrategyAggregateStatus)

	result := Merge(s, map[string]*models.Outcome{})
	if result.Status != models.MergeSuccess {
		t.Errorf("expected vacuous success, got %s", result.Status)
	}
}

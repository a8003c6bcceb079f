// Package merge combines the heterogeneous outcomes of concurrent work items
// into one coherent result, selecting a strategy by item kind and detecting
// conflicts over shared artifacts.
package merge

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cascadekit/cascade/pkg/models"
)

// Strategy combines a set of outcomes, already ordered by item ID, into a
// merged status and output. Strategies may also surface their own conflict
// records (verify-all does).
type Strategy interface {
	// Name is the strategy's registry key.
	Name() string
	// Combine produces the merged status, output, and strategy-specific
	// conflicts. The output must depend only on the ordered outcomes, never
	// on completion order.
	Combine(ordered []*models.Outcome) (models.MergeStatus, string, []models.Conflict)
}

// Built-in strategy names.
const (
	StrategyAggregateStatus = "aggregate-status"
	StrategyConcatenate     = "concatenate"
	StrategyDeduplicateRank = "deduplicate-rank"
	StrategyNumericSum      = "numeric-sum"
	StrategyVerifyAll       = "verify-all"
)

// Registry maps strategy names to strategies and item kinds to strategy
// names. A fresh registry carries the built-in strategies and kind bindings;
// both are extensible.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	kinds      map[string]string
}

// NewRegistry creates a registry with the built-in strategies registered and
// the default kind bindings installed.
func NewRegistry() *Registry {
	r := &Registry{
		strategies: make(map[string]Strategy),
		kinds:      make(map[string]string),
	}
	r.Register(aggregateStatus{})
	r.Register(concatenate{})
	r.Register(deduplicateRank{})
	r.Register(numericSum{})
	r.Register(verifyAll{})

	// Read/fetch-style kinds concatenate; scan-style kinds deduplicate;
	// check-style kinds sum numeric sub-totals; verification kinds demand
	// the verified marker. Everything else aggregates status.
	r.BindKind("read", StrategyConcatenate)
	r.BindKind("fetch", StrategyConcatenate)
	r.BindKind("scan", StrategyDeduplicateRank)
	r.BindKind("check", StrategyNumericSum)
	r.BindKind("count", StrategyNumericSum)
	r.BindKind("verify", StrategyVerifyAll)
	return r
}

// Register adds or replaces a strategy by name.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown merge strategy %q", name)
	}
	return s, nil
}

// BindKind maps an item kind to a strategy name.
func (r *Registry) BindKind(kind, strategy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = strategy
}

// ForKind returns the strategy bound to kind, falling back to
// aggregate-status.
func (r *Registry) ForKind(kind string) Strategy {
	r.mu.RLock()
	name, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		name = StrategyAggregateStatus
	}
	s, err := r.Get(name)
	if err != nil {
		s, _ = r.Get(StrategyAggregateStatus)
	}
	return s
}

// DominantKind returns the most frequent kind among items; ties break to the
// lexicographically smallest kind so selection stays deterministic.
func DominantKind(items []*models.WorkItem) string {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.Kind]++
	}

	best, bestCount := "", -1
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		if counts[kind] > bestCount {
			best, bestCount = kind, counts[kind]
		}
	}
	return best
}

// Ordered returns the outcomes sorted by item ID.
func Ordered(outcomes map[string]*models.Outcome) []*models.Outcome {
	ids := make([]string, 0, len(outcomes))
	for id := range outcomes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ordered := make([]*models.Outcome, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, outcomes[id])
	}
	return ordered
}

// Merge runs the strategy over the outcomes and assembles the immutable
// MergeResult, including artifact conflicts shared by all strategies.
func Merge(s Strategy, outcomes map[string]*models.Outcome) *models.MergeResult {
	ordered := Ordered(outcomes)
	status, output, conflicts := s.Combine(ordered)
	conflicts = append(conflicts, detectArtifactConflicts(ordered)...)

	return &models.MergeResult{
		Strategy:     s.Name(),
		Status:       status,
		MergedOutput: output,
		Conflicts:    conflicts,
		PerItem:      outcomes,
	}
}

// aggregateStatusOf applies the shared Success/Partial/Failed rule: Success
// only if every outcome succeeded, Failed if none did, Partial otherwise.
func aggregateStatusOf(ordered []*models.Outcome) models.MergeStatus {
	succeeded := 0
	for _, o := range ordered {
		if o.Status == models.OutcomeSuccess {
			succeeded++
		}
	}
	switch {
	case succeeded == len(ordered):
		return models.MergeSuccess
	case succeeded == 0 && len(ordered) > 0:
		return models.MergeFailed
	default:
		return models.MergePartial
	}
}

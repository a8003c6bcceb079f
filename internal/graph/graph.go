// Package graph provides the dependency analyzer that partitions work items
// into ordered, internally-parallel waves.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cascadekit/cascade/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found among the
// submitted work items.
var ErrCycleDetected = errors.New("circular dependency detected")

// CycleError reports the item IDs that could not be placed into any wave.
type CycleError struct {
	// Remaining lists the unplaced item IDs, sorted for reproducibility.
	Remaining []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected among items: %s",
		strings.Join(e.Remaining, ", "))
}

// Unwrap allows errors.Is(err, ErrCycleDetected).
func (e *CycleError) Unwrap() error { return ErrCycleDetected }

// DependencyGraph is a directed graph of work items where edges represent
// "blocked by" relationships. It is safe for concurrent use.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps item ID to the item itself.
	nodes map[string]*models.WorkItem
	// edges maps item ID to the IDs of items it is blocked by.
	edges map[string][]string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates an empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:    make(map[string]*models.WorkItem),
		edges:    make(map[string][]string),
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build registers all items and their dependency edges. It rejects duplicate
// IDs and dependencies on unknown items. Cycle detection is deferred to
// Waves, which names the offending items.
func (g *DependencyGraph) Build(items []*models.WorkItem) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d items", len(items))

	for _, item := range items {
		if _, exists := g.nodes[item.ID]; exists {
			return fmt.Errorf("duplicate item id %s", item.ID)
		}
		g.nodes[item.ID] = item
		g.edges[item.ID] = nil
	}

	for _, item := range items {
		for _, depID := range item.BlockedBy {
			if _, exists := g.nodes[depID]; !exists {
				return fmt.Errorf("item %s is blocked by unknown item %s", item.ID, depID)
			}
			g.edges[item.ID] = append(g.edges[item.ID], depID)
		}
	}

	g.debugLog("[graph.Build] graph built with %d nodes", len(g.nodes))
	return nil
}

// Waves partitions the graph into an ordered list of waves using Kahn-style
// topological batching: each wave is the set of items whose dependencies
// have all been placed into earlier waves. Items within a wave are sorted by
// ID for reproducible logging only; no execution order is implied.
//
// An empty graph yields an empty wave list. If a round extracts no items
// while unplaced items remain, Waves returns a *CycleError naming them.
func (g *DependencyGraph) Waves() ([]models.Wave, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	placed := make(map[string]bool, len(g.nodes))
	var waves []models.Wave

	for len(placed) < len(g.nodes) {
		var ready []*models.WorkItem
		for id, item := range g.nodes {
			if placed[id] {
				continue
			}
			eligible := true
			for _, depID := range g.edges[id] {
				if !placed[depID] {
					eligible = false
					break
				}
			}
			if eligible {
				ready = append(ready, item)
			}
		}

		if len(ready) == 0 {
			var remaining []string
			for id := range g.nodes {
				if !placed[id] {
					remaining = append(remaining, id)
				}
			}
			sort.Strings(remaining)
			g.debugLog("[graph.Waves] cycle detected, %d items unplaced: %v", len(remaining), remaining)
			return nil, &CycleError{Remaining: remaining}
		}

		sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
		wave := models.Wave{Index: len(waves), Items: ready}
		waves = append(waves, wave)
		for _, item := range ready {
			placed[item.ID] = true
		}

		g.debugLog("[graph.Waves] wave %d: %v", wave.Index, wave.ItemIDs())
	}

	return waves, nil
}

// SequentialWaves flattens the wave plan into single-item waves, preserving
// dependency order. Used when the expected parallel speedup is below the
// configured threshold.
func (g *DependencyGraph) SequentialWaves() ([]models.Wave, error) {
	waves, err := g.Waves()
	if err != nil {
		return nil, err
	}

	var flat []models.Wave
	for _, wave := range waves {
		for _, item := range wave.Items {
			flat = append(flat, models.Wave{Index: len(flat), Items: []*models.WorkItem{item}})
		}
	}
	return flat, nil
}

// Package models defines the shared data types for the cascade engine:
// work items, waves, outcomes, capability modules, and run reports.
package models

import (
	"fmt"
	"strings"
)

// WorkItem is a single schedulable unit of work. It is immutable once
// submitted; the engine never mutates it and stores results separately,
// keyed by ID.
type WorkItem struct {
	// ID is the unique, stable identifier for this item.
	ID string `json:"id" yaml:"id"`
	// Kind tags the item type and drives merge-strategy selection.
	Kind string `json:"kind" yaml:"kind"`
	// Payload carries opaque instructions for the external executor.
	Payload string `json:"payload" yaml:"payload"`
	// BlockedBy lists item IDs that must complete successfully first.
	BlockedBy []string `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
	// RequiredCapability names a capability module this item needs, if any.
	RequiredCapability string `json:"requires,omitempty" yaml:"requires,omitempty"`
	// CapabilitySpec is a human-readable description of the required
	// capability, used when the module has to be created on first request.
	CapabilitySpec string `json:"capability_spec,omitempty" yaml:"capability_spec,omitempty"`
}

// Validate checks that the item is well-formed for submission.
func (w *WorkItem) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("work item: id is required")
	}
	if strings.TrimSpace(w.Kind) == "" {
		return fmt.Errorf("work item %s: kind is required", w.ID)
	}
	// A self-referencing BlockedBy is legal here; the dependency analyzer
	// reports it as a cyclic dependency naming the item.
	return nil
}

// Wave is a batch of work items with no intra-batch dependency. Waves are
// totally ordered; items within a wave have no ordering guarantee beyond
// the reproducible ID sort applied for logging.
type Wave struct {
	// Index is the wave's position in the run, starting at 0.
	Index int `json:"index"`
	// Items are the work items eligible for concurrent dispatch.
	Items []*WorkItem `json:"items"`
}

// ItemIDs returns the IDs of the wave's items in their stored order.
func (w Wave) ItemIDs() []string {
	ids := make([]string, 0, len(w.Items))
	for _, item := range w.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

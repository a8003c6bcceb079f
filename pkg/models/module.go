package models

import "time"

// ModuleStatus represents the lifecycle state of a capability module.
type ModuleStatus string

const (
	// ModuleActive indicates the module is available for resolution.
	ModuleActive ModuleStatus = "active"
	// ModuleRetired indicates the module was deleted by reconciliation.
	ModuleRetired ModuleStatus = "retired"
)

// CapabilityModule is a named, possibly-temporary resource a work item may
// require. Permanent (non-temporary) modules are never retired by the engine.
type CapabilityModule struct {
	// Name uniquely identifies the module within a registry.
	Name string `json:"name" yaml:"name"`
	// Description is the human-readable spec the module was created from.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Capabilities lists what the module provides, used for redundancy checks.
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	// Temporary marks modules created on demand during a run.
	Temporary bool `json:"temporary" yaml:"temporary"`
	// CreatedAt is when the module was first registered.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// UsageCount is incremented on every successful resolution.
	UsageCount int `json:"usage_count" yaml:"usage_count"`
	// LastUsedAt is updated on every successful resolution.
	LastUsedAt time.Time `json:"last_used_at" yaml:"last_used_at"`
	// Status is Active until reconciliation retires the module.
	Status ModuleStatus `json:"status" yaml:"status"`
}

// DaysSinceLastUse returns whole days elapsed since the module was last
// resolved, relative to now. A module that was never used falls back to its
// creation time.
func (m *CapabilityModule) DaysSinceLastUse(now time.Time) int {
	ref := m.LastUsedAt
	if ref.IsZero() {
		ref = m.CreatedAt
	}
	if ref.IsZero() || now.Before(ref) {
		return 0
	}
	return int(now.Sub(ref).Hours() / 24)
}

// ProvidesAll reports whether the module's declared capabilities cover every
// capability in want.
func (m *CapabilityModule) ProvidesAll(want []string) bool {
	if len(want) == 0 {
		return false
	}
	have := make(map[string]bool, len(m.Capabilities))
	for _, c := range m.Capabilities {
		have[c] = true
	}
	for _, c := range want {
		if !have[c] {
			return false
		}
	}
	return true
}

// ReconcileAction is the keep/delete decision applied to a temporary module.
type ReconcileAction string

const (
	// ActionKeep retains the module for future runs.
	ActionKeep ReconcileAction = "keep"
	// ActionDelete removes the module's artifacts and retires it.
	ActionDelete ReconcileAction = "delete"
)

// ReconcileDecision records one keep/delete decision with its reason.
type ReconcileDecision struct {
	// Module is the name of the module the decision applies to.
	Module string `json:"module"`
	// Action is keep or delete.
	Action ReconcileAction `json:"action"`
	// Reason is the heuristic rule that fired.
	Reason string `json:"reason"`
}

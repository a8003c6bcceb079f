package capability

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cascadekit/cascade/pkg/models"
)

// Reason strings recorded with every keep/delete decision.
const (
	ReasonProvenValue  = "proven value"
	ReasonRecentlyUsed = "recently used"
	ReasonFlagged      = "flagged useful"
	ReasonStale        = "stale"
	ReasonOneOff       = "one-off, no repeat use"
	ReasonRedundant    = "redundant with permanent module"
	ReasonDeferred     = "insufficient evidence; defer decision"
)

// Reconcile applies the keep/delete heuristic to every temporary module and
// returns the decisions in module-name order. Rules are evaluated strictly
// top-down; the first match wins:
//
//  1. usage count >= 3                          -> keep (proven value)
//  2. last used within RecentDays               -> keep (recently used)
//  3. flagged useful by an external signal      -> keep (flagged useful)
//  4. unused for at least StaleDays             -> delete (stale)
//  5. used once and idle for RecentDays         -> delete (one-off)
//  6. permanent module covers its capabilities  -> delete (redundant)
//  7. otherwise                                 -> keep (defer decision)
//
// Deletion removes the module's directory and retires it. Reconcile is
// idempotent: a second pass over the same state yields the same decisions,
// and deleting an already-retired module is a no-op. Deletion failures are
// non-fatal; the module stays Active and is retried next time.
func (r *Registry) Reconcile() ([]models.ReconcileDecision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.modules))
	for name, m := range r.modules {
		if m.Temporary {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var decisions []models.ReconcileDecision
	var errs []error

	for _, name := range names {
		m := r.modules[name]
		action, reason := r.decideLocked(m)
		decisions = append(decisions, models.ReconcileDecision{
			Module: name,
			Action: action,
			Reason: reason,
		})
		r.debugLog("[capability] reconcile %s: %s (%s)", name, action, reason)

		if action != models.ActionDelete || m.Status == models.ModuleRetired {
			continue
		}
		if err := os.RemoveAll(filepath.Join(r.dir, name)); err != nil {
			// Non-fatal: leave Active so the next reconciliation retries.
			errs = append(errs, fmt.Errorf("delete module %s: %w", name, err))
			continue
		}
		m.Status = models.ModuleRetired
	}

	return decisions, errors.Join(errs...)
}

// decideLocked applies the heuristic priority order to one temporary module.
// Caller holds r.mu.
func (r *Registry) decideLocked(m *models.CapabilityModule) (models.ReconcileAction, string) {
	days := m.DaysSinceLastUse(r.now())

	switch {
	case m.UsageCount >= 3:
		return models.ActionKeep, ReasonProvenValue
	case days <= r.retention.RecentDays:
		return models.ActionKeep, ReasonRecentlyUsed
	case r.isFlaggedLocked(m.Name):
		return models.ActionKeep, ReasonFlagged
	case days >= r.retention.StaleDays:
		return models.ActionDelete, ReasonStale
	case m.UsageCount == 1 && days >= r.retention.RecentDays:
		return models.ActionDelete, ReasonOneOff
	case r.redundantLocked(m):
		return models.ActionDelete, ReasonRedundant
	default:
		return models.ActionKeep, ReasonDeferred
	}
}

// redundantLocked reports whether an Active permanent module already provides
// everything m does. Caller holds r.mu.
func (r *Registry) redundantLocked(m *models.CapabilityModule) bool {
	for _, other := range r.modules {
		if other.Temporary || other.Status != models.ModuleActive {
			continue
		}
		if other.ProvidesAll(m.Capabilities) {
			return true
		}
	}
	return false
}

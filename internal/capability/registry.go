// Package capability implements the resource lifecycle manager: a registry of
// named capability modules with atomic find-or-create resolution and an
// end-of-run keep/delete reconciliation pass.
package capability

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cascadekit/cascade/pkg/models"
)

// CreationError wraps a failure to create a capability module. It turns the
// requesting item's outcome into Failed without aborting the wave.
type CreationError struct {
	// Name is the module that could not be created.
	Name string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	return fmt.Sprintf("create capability module %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CreationError) Unwrap() error { return e.Err }

// RetentionPolicy holds the recency thresholds for the keep/delete heuristic.
type RetentionPolicy struct {
	// RecentDays keeps modules used within this many days.
	RecentDays int
	// StaleDays deletes modules unused for at least this many days.
	StaleDays int
}

// DefaultRetention is the policy applied when none is configured.
var DefaultRetention = RetentionPolicy{RecentDays: 7, StaleDays: 30}

// Registry owns the capability modules for one engine. Its lifetime is scoped
// to an engine instance; cross-run persistence comes from the module manifests
// it loads from disk at open time. There are no package-level registries.
type Registry struct {
	mu        sync.Mutex
	dir       string
	modules   map[string]*models.CapabilityModule
	flagged   map[string]bool
	created   int
	retention RetentionPolicy
	now       func() time.Time
	debugLog  func(format string, args ...interface{})
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry's notion of now (mainly for testing).
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithRetention sets the keep/delete recency thresholds.
func WithRetention(p RetentionPolicy) Option {
	return func(r *Registry) {
		if p.RecentDays > 0 {
			r.retention.RecentDays = p.RecentDays
		}
		if p.StaleDays > 0 {
			r.retention.StaleDays = p.StaleDays
		}
	}
}

// WithDebugLog sets the debug logging function.
func WithDebugLog(fn func(format string, args ...interface{})) Option {
	return func(r *Registry) {
		if fn != nil {
			r.debugLog = fn
		}
	}
}

// Open creates a registry rooted at dir, loading any module manifests already
// present. The directory is created if missing.
func Open(dir string, opts ...Option) (*Registry, error) {
	r := &Registry{
		dir:       dir,
		modules:   make(map[string]*models.CapabilityModule),
		flagged:   make(map[string]bool),
		retention: DefaultRetention,
		now:       time.Now,
		debugLog:  func(format string, args ...interface{}) {},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create modules directory: %w", err)
	}

	if err := r.loadManifests(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the registry's modules directory.
func (r *Registry) Dir() string { return r.dir }

// Resolve returns the Active module named name, creating a temporary one from
// spec when none exists. The find-or-create sequence is atomic: concurrent
// resolutions of the same name never create duplicates. Every successful
// resolution bumps the module's usage count and last-used timestamp.
//
// Resolve never overwrites or deletes a pre-existing module.
func (r *Registry) Resolve(name, spec string) (*models.CapabilityModule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[name]; ok && m.Status == models.ModuleActive {
		m.UsageCount++
		m.LastUsedAt = r.now()
		if err := r.writeManifest(m); err != nil {
			r.debugLog("[capability] persist usage for %s: %v", name, err)
		}
		r.debugLog("[capability] resolved %s (usage=%d, temporary=%v)", name, m.UsageCount, m.Temporary)
		return m, nil
	}

	m, err := r.createLocked(name, spec)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// createLocked creates and registers a new temporary module. Caller holds r.mu.
func (r *Registry) createLocked(name, spec string) (*models.CapabilityModule, error) {
	if err := validateName(name); err != nil {
		return nil, &CreationError{Name: name, Err: err}
	}

	now := r.now()
	m := &models.CapabilityModule{
		Name:         name,
		Description:  spec,
		Capabilities: parseCapabilities(spec),
		Temporary:    true,
		CreatedAt:    now,
		UsageCount:   1, // the requesting item is its first user
		LastUsedAt:   now,
		Status:       models.ModuleActive,
	}

	moduleDir := filepath.Join(r.dir, name)
	if err := os.MkdirAll(moduleDir, 0755); err != nil {
		return nil, &CreationError{Name: name, Err: err}
	}
	if err := r.writeManifest(m); err != nil {
		return nil, &CreationError{Name: name, Err: err}
	}
	if err := writePluginScaffold(moduleDir, m); err != nil {
		return nil, &CreationError{Name: name, Err: err}
	}

	r.modules[name] = m
	r.created++
	r.debugLog("[capability] created temporary module %s with capabilities %v", name, m.Capabilities)
	return m, nil
}

// MarkUseful records an external "this module is useful" signal for name.
// The flag participates in reconciliation rule 3.
func (r *Registry) MarkUseful(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flagged[name] = true
	r.debugLog("[capability] module %s flagged useful", name)
}

// Get returns the module named name, or nil if not registered.
func (r *Registry) Get(name string) *models.CapabilityModule {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modules[name]
}

// List returns all registered modules sorted by name.
func (r *Registry) List() []*models.CapabilityModule {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.CapabilityModule, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreatedCount returns the number of modules created since the registry was
// opened.
func (r *Registry) CreatedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created
}

// isFlaggedLocked reports whether name has a useful signal, either recorded
// via MarkUseful or present as a <name>.keep flag file. Caller holds r.mu.
func (r *Registry) isFlaggedLocked(name string) bool {
	if r.flagged[name] {
		return true
	}
	if _, err := os.Stat(filepath.Join(r.dir, name+".keep")); err == nil {
		return true
	}
	return false
}

// validateName rejects names that would escape the modules directory.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("module name is empty")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("invalid module name %q", name)
	}
	return nil
}

// parseCapabilities splits a human-readable spec into capability tokens.
// Commas and newlines both delimit.
func parseCapabilities(spec string) []string {
	fields := strings.FieldsFunc(spec, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	var caps []string
	for _, f := range fields {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			caps = append(caps, trimmed)
		}
	}
	return caps
}

package capability

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cascadekit/cascade/pkg/models"
)

func openRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r, err := Open(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	return r
}

// seedPermanent writes a permanent module manifest directly to disk so it is
// loaded as a pre-existing module.
func seedPermanent(t *testing.T, dir, name string, caps []string) {
	t.Helper()
	m := models.CapabilityModule{
		Name:         name,
		Capabilities: caps,
		Temporary:    false,
		CreatedAt:    time.Now().AddDate(0, -6, 0),
		Status:       models.ModuleActive,
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, name), 0755); err != nil {
		t.Fatalf("mkdir module: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name, "module.yaml"), data, 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestResolveCreatesTemporaryModule(t *testing.T) {
	r := openRegistry(t)

	m, err := r.Resolve("pdf-render", "render pdf, extract text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Temporary {
		t.Error("expected created module to be temporary")
	}
	if m.Status != models.ModuleActive {
		t.Errorf("expected Active status, got %s", m.Status)
	}
	if m.UsageCount != 1 {
		t.Errorf("expected usage count 1 on creation, got %d", m.UsageCount)
	}
	if len(m.Capabilities) != 2 {
		t.Errorf("expected 2 parsed capabilities, got %v", m.Capabilities)
	}

	// Manifest and plugin scaffold must exist on disk.
	if _, err := os.Stat(filepath.Join(r.Dir(), "pdf-render", "module.yaml")); err != nil {
		t.Errorf("expected manifest on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.Dir(), "pdf-render", "plugin.go")); err != nil {
		t.Errorf("expected plugin scaffold on disk: %v", err)
	}

	if r.CreatedCount() != 1 {
		t.Errorf("expected created count 1, got %d", r.CreatedCount())
	}
}

func TestResolveExistingIncrementsUsage(t *testing.T) {
	r := openRegistry(t)

	if _, err := r.Resolve("tool", "do things"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, err := r.Resolve("tool", "ignored second spec")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.UsageCount != 2 {
		t.Errorf("expected usage count 2, got %d", m.UsageCount)
	}
	if m.Description != "do things" {
		t.Errorf("expected original description preserved, got %q", m.Description)
	}
	if r.CreatedCount() != 1 {
		t.Errorf("expected a single creation, got %d", r.CreatedCount())
	}
}

func TestResolvePreExistingPermanentModule(t *testing.T) {
	dir := t.TempDir()
	seedPermanent(t, dir, "linter", []string{"lint-go"})

	r, err := Open(dir)
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}

	m, err := r.Resolve("linter", "lint-go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Temporary {
		t.Error("pre-existing module must stay permanent")
	}
	if m.UsageCount != 1 {
		t.Errorf("expected usage count 1, got %d", m.UsageCount)
	}
	if r.CreatedCount() != 0 {
		t.Errorf("expected no creation for pre-existing module, got %d", r.CreatedCount())
	}
}

func TestResolveConcurrentNoDuplicateCreation(t *testing.T) {
	r := openRegistry(t)

	var wg sync.WaitGroup
	const n = 16
	results := make([]*models.CapabilityModule, n)
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Resolve("shared", "one capability")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("resolve %d failed: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatal("concurrent resolves returned different module instances")
		}
	}
	if r.CreatedCount() != 1 {
		t.Errorf("expected exactly one creation under race, got %d", r.CreatedCount())
	}
	if got := r.Get("shared").UsageCount; got != n {
		t.Errorf("expected usage count %d, got %d", n, got)
	}
}

func TestResolveInvalidName(t *testing.T) {
	r := openRegistry(t)

	_, err := r.Resolve("../escape", "nope")
	if err == nil {
		t.Fatal("expected error for invalid module name")
	}
	var creationErr *CreationError
	if !errors.As(err, &creationErr) {
		t.Errorf("expected *CreationError, got %T", err)
	}
}

func TestRegistryPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()

	r1, err := Open(dir)
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	if _, err := r1.Resolve("cache", "memoize results"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r1.Resolve("cache", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen registry: %v", err)
	}
	m := r2.Get("cache")
	if m == nil {
		t.Fatal("expected module loaded from manifest")
	}
	if m.UsageCount != 2 {
		t.Errorf("expected persisted usage count 2, got %d", m.UsageCount)
	}
	if !m.Temporary {
		t.Error("expected temporary flag to persist")
	}
}

func TestListSorted(t *testing.T) {
	r := openRegistry(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if _, err := r.Resolve(name, "x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	list := r.List()
	if len(list) != 3 || list[0].Name != "alpha" || list[1].Name != "mid" || list[2].Name != "zeta" {
		t.Errorf("expected sorted module list, got %v", list)
	}
}

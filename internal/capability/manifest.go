package capability

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cascadekit/cascade/pkg/models"
)

// manifestFile is the per-module manifest name under <dir>/<name>/.
const manifestFile = "module.yaml"

// pluginFile is the optional yaegi-loadable plugin source under <dir>/<name>/.
const pluginFile = "plugin.go"

// loadManifests reads every <dir>/<name>/module.yaml into the registry.
// Modules found on disk at open time are pre-existing; their Temporary flag
// comes from the manifest itself, so permanent modules survive reconciliation.
func (r *Registry) loadManifests() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read modules directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, entry.Name(), manifestFile)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // not a module directory
			}
			return fmt.Errorf("read manifest %s: %w", path, err)
		}

		var m models.CapabilityModule
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("parse manifest %s: %w", path, err)
		}
		if m.Name == "" {
			m.Name = entry.Name()
		}
		if m.Status == "" {
			m.Status = models.ModuleActive
		}
		r.modules[m.Name] = &m
		r.debugLog("[capability] loaded module %s (temporary=%v, usage=%d)", m.Name, m.Temporary, m.UsageCount)
	}
	return nil
}

// writeManifest persists the module's manifest. Caller holds r.mu.
func (r *Registry) writeManifest(m *models.CapabilityModule) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest for %s: %w", m.Name, err)
	}
	path := filepath.Join(r.dir, m.Name, manifestFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest for %s: %w", m.Name, err)
	}
	return nil
}

// writePluginScaffold writes a starter plugin source next to the manifest so
// the module can grow real behavior. The scaffold already passes VerifyPlugin.
func writePluginScaffold(moduleDir string, m *models.CapabilityModule) error {
	path := filepath.Join(moduleDir, pluginFile)
	if _, err := os.Stat(path); err == nil {
		return nil // never overwrite an existing plugin
	}

	src := fmt.Sprintf(`package main

// Capabilities declares what the %s module provides.
func Capabilities() []string {
	return %#v
}
`, m.Name, m.Capabilities)

	return os.WriteFile(path, []byte(src), 0644)
}

package capability

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// capabilityFuncName is the function a module plugin must export.
const capabilityFuncName = "Capabilities"

// VerifyPlugin interprets a module's plugin source and returns the capability
// list its Capabilities() function declares. It is used by `cascade modules
// verify` and when auditing a module before reuse.
func VerifyPlugin(path string) ([]string, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(code))) == 0 {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: load stdlib symbols: %w", err)
	}
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}

	fnValue, err := i.Eval(capabilityFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s must define %s() []string: %w", path, capabilityFuncName, err)
	}
	caps, err := invokeCapabilityFunc(fnValue)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return caps, nil
}

// VerifyModulePlugin verifies the plugin source of a registered module and
// returns its declared capabilities.
func (r *Registry) VerifyModulePlugin(name string) ([]string, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return VerifyPlugin(filepath.Join(r.dir, name, pluginFile))
}

// invokeCapabilityFunc calls the interpreted Capabilities function and
// normalizes its return value to []string.
func invokeCapabilityFunc(value reflect.Value) ([]string, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s function", capabilityFuncName)
	}
	if value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", capabilityFuncName)
	}

	results := value.Call(nil)
	if len(results) != 1 {
		return nil, fmt.Errorf("%s must return exactly one value", capabilityFuncName)
	}

	out := results[0]
	if caps, ok := out.Interface().([]string); ok {
		return caps, nil
	}
	if out.Kind() == reflect.Slice {
		caps := make([]string, out.Len())
		for i := 0; i < out.Len(); i++ {
			s, ok := out.Index(i).Interface().(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] is not a string", capabilityFuncName, i)
			}
			caps[i] = s
		}
		return caps, nil
	}
	return nil, fmt.Errorf("%s must return []string", capabilityFuncName)
}

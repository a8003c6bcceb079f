// Package config handles configuration loading for cascade. It supports XDG
// config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for cascade.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Retention RetentionConfig `mapstructure:"retention"`
	Modules   ModulesConfig   `mapstructure:"modules"`
	State     StateConfig     `mapstructure:"state"`
}

// EngineConfig holds orchestration engine settings.
type EngineConfig struct {
	// PerItemTimeout is the deadline applied to each dispatched item.
	PerItemTimeout time.Duration `mapstructure:"per_item_timeout"`
	// MaxParallelItems caps concurrent items per wave. Zero means unbounded.
	MaxParallelItems int `mapstructure:"max_parallel_items"`
	// MinSpeedupThreshold collapses the plan to sequential waves when the
	// ratio of items to waves falls below it. Zero disables the check.
	MinSpeedupThreshold float64 `mapstructure:"min_speedup_threshold"`
}

// RetentionConfig holds the keep/delete thresholds for temporary capability
// modules.
type RetentionConfig struct {
	// RecentDays keeps modules used within this many days.
	RecentDays int `mapstructure:"recent_days"`
	// StaleDays deletes modules unused for at least this many days.
	StaleDays int `mapstructure:"stale_days"`
}

// ModulesConfig holds capability module storage settings.
type ModulesConfig struct {
	// Dir is the capability modules directory.
	Dir string `mapstructure:"dir"`
}

// StateConfig holds run-record persistence settings.
type StateConfig struct {
	// Path is the SQLite database path.
	Path string `mapstructure:"path"`
}

// Load loads configuration with the following precedence (highest first):
// environment variables (CASCADE_*), project config (.cascade.yaml in the
// current directory or a parent), user config (~/.config/cascade/config.yaml),
// built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Nested keys map to underscored env names, e.g. engine.max_parallel_items
	// is overridden by CASCADE_ENGINE_MAX_PARALLEL_ITEMS.
	v.SetEnvPrefix("CASCADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures built-in default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.per_item_timeout", 5*time.Minute)
	v.SetDefault("engine.max_parallel_items", 0)
	v.SetDefault("engine.min_speedup_threshold", 0.0)
	v.SetDefault("retention.recent_days", 7)
	v.SetDefault("retention.stale_days", 30)
	v.SetDefault("modules.dir", filepath.Join(".cascade", "modules"))
	v.SetDefault("state.path", filepath.Join(".cascade", "state.db"))
}

// getUserConfigDir returns the XDG config directory for cascade.
func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "cascade")
}

// findProjectConfig walks up from the working directory looking for
// .cascade.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".cascade.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

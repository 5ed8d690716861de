// Package config loads and validates the Modulaur host configuration
// from YAML. The configuration covers plugin roots, persistence,
// runtime limits, and telemetry; extension manifests are handled by
// the manifest package, not here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/modulaur/modulaur/pkg/telemetry"
)

// Config is the root host configuration.
type Config struct {
	// Plugins configures extension discovery and loading.
	Plugins PluginsConfig `yaml:"plugins"`

	// Database configures page and panel persistence.
	Database DatabaseConfig `yaml:"database"`

	// Server configures the local HTTP surface.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging, tracing, metrics, and events.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// PluginsConfig configures extension discovery and the bundle runtime.
type PluginsConfig struct {
	// Roots are the directories scanned for extensions, in order.
	// When two roots supply the same extension ID, the later wins.
	Roots []string `yaml:"roots" validate:"min=1,dive,required"`

	// Watch enables filesystem watching of the roots with automatic
	// rescans and reloads.
	Watch bool `yaml:"watch"`

	// WatchDebounce is how long the watcher waits for the filesystem
	// to settle before rescanning.
	WatchDebounce time.Duration `yaml:"watch_debounce" validate:"min=0"`

	// LoadTimeout limits a single bundle's registration call.
	LoadTimeout time.Duration `yaml:"load_timeout" validate:"min=0"`

	// MemoryLimitPages caps bundle linear memory in 64KB pages.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted.
	Path string `yaml:"path" validate:"required"`
}

// ServerConfig configures the local HTTP surface.
type ServerConfig struct {
	// Addr is the listen address for the serve command.
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// Default returns the host configuration used when no file is given.
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".modulaur")
	return &Config{
		Plugins: PluginsConfig{
			Roots:            []string{filepath.Join(dataDir, "plugins")},
			Watch:            false,
			WatchDebounce:    500 * time.Millisecond,
			LoadTimeout:      10 * time.Second,
			MemoryLimitPages: 256,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "modulaur.db"),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8390",
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads a YAML configuration file, layers it over the defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems. It does
// not require the plugin roots to exist; a missing root is a scan-time
// concern, not a config error.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return nil
}

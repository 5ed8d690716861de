package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration must validate: %v", err)
	}
	if len(cfg.Plugins.Roots) == 0 {
		t.Error("default must configure at least one plugin root")
	}
	if cfg.Plugins.LoadTimeout == 0 {
		t.Error("default must bound bundle execution")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
plugins:
  roots:
    - /opt/modulaur/plugins
    - /home/user/.modulaur/plugins
  watch: true
  watch_debounce: 250ms
database:
  path: /home/user/.modulaur/modulaur.db
server:
  addr: "127.0.0.1:9000"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Plugins.Roots) != 2 {
		t.Errorf("Roots = %v", cfg.Plugins.Roots)
	}
	if !cfg.Plugins.Watch {
		t.Error("watch not parsed")
	}
	if cfg.Plugins.WatchDebounce != 250*time.Millisecond {
		t.Errorf("WatchDebounce = %v", cfg.Plugins.WatchDebounce)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	// Unset fields keep their defaults.
	if cfg.Plugins.LoadTimeout != 10*time.Second {
		t.Errorf("LoadTimeout = %v, want default", cfg.Plugins.LoadTimeout)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"no roots",
			"plugins:\n  roots: []\n",
		},
		{
			"bad addr",
			"server:\n  addr: not-an-address\n",
		},
		{
			"empty database path",
			"database:\n  path: \"\"\n",
		},
		{
			"malformed yaml",
			"plugins: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateDoesNotRequireRootsToExist(t *testing.T) {
	cfg := Default()
	cfg.Plugins.Roots = []string{"/definitely/not/a/real/dir"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("missing roots are a scan concern, not a config error: %v", err)
	}
}

package manifest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/modulaur/modulaur/pkg/extension"
)

func writeExtension(t *testing.T, root, dir, manifest string, entries ...string) string {
	t.Helper()
	extDir := filepath.Join(root, dir)
	if err := os.MkdirAll(extDir, 0755); err != nil {
		t.Fatal(err)
	}
	if manifest != "" {
		if err := os.WriteFile(filepath.Join(extDir, FileName), []byte(manifest), 0644); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range entries {
		path := filepath.Join(extDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte{0x00, 0x61, 0x73, 0x6d}, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return extDir
}

const validManifest = `{
  "id": "weather",
  "name": "Weather Panel",
  "version": "1.2.0",
  "type": "panel",
  "entry": "dist/plugin.wasm",
  "description": "Current conditions panel",
  "components": [
    {"id": "weather", "kind": "panel", "displayName": "Weather"}
  ]
}`

func TestStoreScan(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "weather", validManifest, "dist/plugin.wasm")

	s := NewStore([]string{root})
	n, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 1 {
		t.Fatalf("Scan discovered %d, want 1", n)
	}

	d, ok := s.Get("weather")
	if !ok {
		t.Fatal("weather not in snapshot")
	}
	if d.Name != "Weather Panel" || d.Version != "1.2.0" {
		t.Errorf("descriptor = %+v", d)
	}
	if d.Dir == "" || d.Root != root {
		t.Errorf("Dir=%q Root=%q, want Root=%q", d.Dir, d.Root, root)
	}
	if !d.DeclaresComponent(extension.KindPanel, "weather") {
		t.Error("declared component missing")
	}
}

func TestStoreScanSkipsInvalid(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "good", validManifest, "dist/plugin.wasm")
	writeExtension(t, root, "broken", `{"id": "broken"`)
	writeExtension(t, root, "Bad_ID", `{
  "id": "Bad_ID", "name": "x", "version": "1.0.0", "type": "panel", "entry": "p.wasm"
}`, "p.wasm")

	s := NewStore([]string{root})
	n, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 1 {
		t.Errorf("Scan discovered %d, want 1", n)
	}
	if len(s.Skipped()) != 2 {
		t.Errorf("Skipped = %d, want 2", len(s.Skipped()))
	}
	if _, ok := s.Get("good"); !ok {
		t.Error("valid extension must survive neighbors' failures")
	}
}

func TestStoreScanIgnoresNonExtensions(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "notes-data", "") // a dir without a manifest
	if err := os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStore([]string{root})
	n, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 0 {
		t.Errorf("discovered %d, want 0", n)
	}
	if len(s.Skipped()) != 0 {
		t.Errorf("dirs without manifests must not be reported as skips, got %d", len(s.Skipped()))
	}
}

func TestStoreScanMissingEntry(t *testing.T) {
	root := t.TempDir()
	writeExtension(t, root, "weather", validManifest) // manifest but no wasm

	s := NewStore([]string{root})
	n, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if n != 0 {
		t.Errorf("discovered %d, want 0", n)
	}
	skips := s.Skipped()
	if len(skips) != 1 {
		t.Fatalf("Skipped = %d, want 1", len(skips))
	}
	if !extension.IsScan(skips[0].Err) {
		t.Errorf("skip error class = %v, want scan", skips[0].Err)
	}
}

func TestStoreLaterRootWins(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeExtension(t, rootA, "weather", validManifest, "dist/plugin.wasm")
	writeExtension(t, rootB, "weather", `{
  "id": "weather", "name": "User Weather", "version": "2.0.0", "type": "panel", "entry": "p.wasm"
}`, "p.wasm")

	s := NewStore([]string{rootA, rootB})
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	d, ok := s.Get("weather")
	if !ok {
		t.Fatal("weather not found")
	}
	if d.Root != rootB || d.Version != "2.0.0" {
		t.Errorf("Root=%q Version=%q, want later root to win", d.Root, d.Version)
	}
}

func TestStoreNoReadableRoots(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	s := NewStore([]string{missing})
	_, err := s.Scan(context.Background())
	if err == nil {
		t.Fatal("expected config error when no root is readable")
	}
	var herr *extension.HostError
	if !errors.As(err, &herr) {
		t.Fatalf("error type %T", err)
	}
	if herr.Class != extension.ErrorClassConfig || herr.Code != extension.ErrCodeNoRoots {
		t.Errorf("class=%s code=%s", herr.Class, herr.Code)
	}
}

func TestStorePartialRootsSucceed(t *testing.T) {
	good := t.TempDir()
	writeExtension(t, good, "weather", validManifest, "dist/plugin.wasm")
	missing := filepath.Join(t.TempDir(), "gone")

	s := NewStore([]string{missing, good})
	n, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("one readable root must be enough: %v", err)
	}
	if n != 1 {
		t.Errorf("discovered %d, want 1", n)
	}
}

func TestStoreRescanReplacesSnapshot(t *testing.T) {
	root := t.TempDir()
	dir := writeExtension(t, root, "weather", validManifest, "dist/plugin.wasm")

	s := NewStore([]string{root})
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("removed extension still present after rescan")
	}
	if _, ok := s.Get("weather"); ok {
		t.Error("stale descriptor survived rescan")
	}
}

func TestParseRejections(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		code     string
	}{
		{
			"missing name",
			`{"id": "x", "version": "1.0.0", "type": "panel", "entry": "p.wasm"}`,
			extension.ErrCodeMissingField,
		},
		{
			"bad id",
			`{"id": "My Plugin", "name": "x", "version": "1.0.0", "type": "panel", "entry": "p.wasm"}`,
			extension.ErrCodeBadID,
		},
		{
			"bad version",
			`{"id": "x", "name": "x", "version": "latest", "type": "panel", "entry": "p.wasm"}`,
			extension.ErrCodeBadVersion,
		},
		{
			"escaping entry",
			`{"id": "x", "name": "x", "version": "1.0.0", "type": "panel", "entry": "../../etc/passwd"}`,
			extension.ErrCodeBadPath,
		},
		{
			"unknown type",
			`{"id": "x", "name": "x", "version": "1.0.0", "type": "widget", "entry": "p.wasm"}`,
			extension.ErrCodeParse,
		},
		{
			"component without kind",
			`{"id": "x", "name": "x", "version": "1.0.0", "type": "panel", "entry": "p.wasm",
			  "components": [{"id": "y"}]}`,
			extension.ErrCodeParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.manifest), "/ext/x", "/ext")
			if err == nil {
				t.Fatal("expected rejection")
			}
			var herr *extension.HostError
			if !errors.As(err, &herr) {
				t.Fatalf("error type %T", err)
			}
			if herr.Code != tt.code {
				t.Errorf("code = %q, want %q", herr.Code, tt.code)
			}
			if herr.Class != extension.ErrorClassScan {
				t.Errorf("class = %q, want scan", herr.Class)
			}
		})
	}
}

func TestParseValid(t *testing.T) {
	d, err := Parse([]byte(validManifest), "/ext/weather", "/ext")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.ID != "weather" || d.Type != extension.ManifestTypePanel {
		t.Errorf("descriptor = %+v", d)
	}
	if d.Dir != "/ext/weather" || d.Root != "/ext" {
		t.Errorf("Dir=%q Root=%q", d.Dir, d.Root)
	}
}

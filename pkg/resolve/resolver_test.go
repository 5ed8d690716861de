package resolve

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/extension/manifest"
	"github.com/modulaur/modulaur/pkg/registry"
)

type staticStates map[string]extension.LoadState

func (s staticStates) States() map[string]extension.LoadState { return s }

func TestResolveHit(t *testing.T) {
	set := registry.NewSet()
	registry.SeedBuiltins(set)
	r := New(set, nil, nil)

	e, fb := r.Panel("notes")
	if fb != nil {
		t.Fatalf("unexpected fallback: %+v", fb)
	}
	if e.ID != "notes" || e.Source != registry.SourceBuiltin {
		t.Errorf("entry = %+v", e)
	}
}

func TestResolveMissNotRegistered(t *testing.T) {
	set := registry.NewSet()
	registry.SeedBuiltins(set)
	r := New(set, nil, nil)

	_, fb := r.Panel("ghost-panel")
	if fb == nil {
		t.Fatal("expected fallback")
	}
	if fb.Reason != ReasonNotRegistered {
		t.Errorf("Reason = %q, want %q", fb.Reason, ReasonNotRegistered)
	}
	if fb.Kind != extension.KindPanel || fb.TypeID != "ghost-panel" {
		t.Errorf("fallback = %+v", fb)
	}
	if len(fb.Known) == 0 {
		t.Fatal("fallback must list the currently registered identifiers")
	}
	found := false
	for _, id := range fb.Known {
		if id == "notes" {
			found = true
		}
	}
	if !found {
		t.Errorf("Known = %v, want it to include the builtin notes panel", fb.Known)
	}
}

func TestResolveMissFailedExtension(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "ghost-panels")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	m := `{
  "id": "ghost-panels", "name": "Ghost Panels", "version": "1.0.0",
  "type": "panel", "entry": "plugin.wasm",
  "components": [{"id": "ghost", "kind": "panel"}]
}`
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(m), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.wasm"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	store := manifest.NewStore([]string{root})
	if _, err := store.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	states := staticStates{
		"ghost-panels": {
			Phase:     extension.LoadFailed,
			Reason:    "registration call failed: trap",
			UpdatedAt: time.Now(),
		},
	}

	set := registry.NewSet()
	r := New(set, store, states)

	_, fb := r.Panel("ghost")
	if fb == nil {
		t.Fatal("expected fallback")
	}
	if fb.Reason != ReasonExtensionFailed {
		t.Errorf("Reason = %q, want %q", fb.Reason, ReasonExtensionFailed)
	}
	if fb.Extension != "ghost-panels" {
		t.Errorf("Extension = %q, want ghost-panels", fb.Extension)
	}
	if fb.Detail == "" {
		t.Error("Detail should carry the load failure reason")
	}

	// An identifier the failed extension does not declare stays a
	// plain miss.
	_, fb = r.Panel("other")
	if fb == nil || fb.Reason != ReasonNotRegistered {
		t.Errorf("fallback = %+v, want not registered", fb)
	}
}

func TestResolveMissUnloadedExtension(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "idle-panels")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	m := `{
  "id": "idle-panels", "name": "Idle Panels", "version": "1.0.0",
  "type": "panel", "entry": "plugin.wasm",
  "components": [{"id": "idle", "kind": "panel"}]
}`
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(m), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.wasm"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	store := manifest.NewStore([]string{root})
	if _, err := store.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	// The declarer is discovered but carries no load state, as after an
	// explicit unload. Its components are plain misses, not failures.
	r := New(registry.NewSet(), store, staticStates{})

	_, fb := r.Panel("idle")
	if fb == nil {
		t.Fatal("expected fallback")
	}
	if fb.Reason != ReasonNotRegistered {
		t.Errorf("Reason = %q, want %q", fb.Reason, ReasonNotRegistered)
	}
	if fb.Extension != "" || fb.Detail != "" {
		t.Errorf("fallback = %+v, want no extension attribution", fb)
	}
}

func TestResolveUnknownKind(t *testing.T) {
	set := registry.NewSet()
	r := New(set, nil, nil)

	_, fb := r.Resolve(extension.Kind("widget"), "x")
	if fb == nil {
		t.Fatal("unknown kind must fall back, not panic")
	}
	if fb.Reason != ReasonNotRegistered {
		t.Errorf("Reason = %q", fb.Reason)
	}
}

func TestResolveAfterOverride(t *testing.T) {
	set := registry.NewSet()
	registry.SeedBuiltins(set)
	if err := set.Commit("better-notes", []registry.Entry{
		{ID: "notes", Kind: extension.KindPanel, DisplayName: "Better Notes"},
	}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r := New(set, nil, nil)
	e, fb := r.Panel("notes")
	if fb != nil {
		t.Fatalf("unexpected fallback: %+v", fb)
	}
	if e.Source != "better-notes" {
		t.Errorf("Source = %q, want the overriding extension", e.Source)
	}
}

package host

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/modulaur/modulaur/pkg/config"
	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/resolve"
	"github.com/modulaur/modulaur/pkg/stores"
)

func testConfig(t *testing.T, roots ...string) *config.Config {
	t.Helper()
	if len(roots) == 0 {
		roots = []string{t.TempDir()}
	}
	cfg := config.Default()
	cfg.Plugins.Roots = roots
	cfg.Database.Path = ":memory:"
	return cfg
}

func testPagesStore(t *testing.T) *stores.SQLiteStore {
	t.Helper()
	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// writeBrokenExtension writes an extension whose bundle is not valid
// wasm, so it discovers fine and fails to load.
func writeBrokenExtension(t *testing.T, root, id string, components string) {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	m := `{
  "id": "` + id + `", "name": "` + id + `", "version": "1.0.0",
  "type": "panel", "entry": "plugin.wasm"`
	if components != "" {
		m += `, "components": ` + components
	}
	m += `}`
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(m), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.wasm"), []byte("not wasm"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestServiceStartEmptyRoot(t *testing.T) {
	svc := New(testConfig(t), nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	status := svc.Status()
	if status.Discovered != 0 {
		t.Errorf("Discovered = %d, want 0", status.Discovered)
	}
	// Built-ins are present regardless of extensions.
	if status.Registries["panel"] == 0 {
		t.Error("builtin panels missing")
	}
}

func TestServiceStartSurvivesFailedExtension(t *testing.T) {
	root := t.TempDir()
	writeBrokenExtension(t, root, "ghost-panels", `[{"id": "ghost", "kind": "panel"}]`)

	svc := New(testConfig(t, root), nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("a failing extension must not abort startup: %v", err)
	}
	defer svc.Stop()

	status := svc.Status()
	if status.Discovered != 1 || status.Failed != 1 {
		t.Errorf("status = %+v", status)
	}

	info, err := svc.Get("ghost-panels")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.State.Phase != extension.LoadFailed {
		t.Errorf("phase = %s, want failed", info.State.Phase)
	}
	if info.State.Reason == "" {
		t.Error("failure reason missing")
	}

	// The declared component attributes the miss to the failed
	// extension.
	_, fb := svc.Resolver().Panel("ghost")
	if fb == nil {
		t.Fatal("expected fallback")
	}
	if fb.Reason != resolve.ReasonExtensionFailed || fb.Extension != "ghost-panels" {
		t.Errorf("fallback = %+v", fb)
	}
}

func TestServiceStartNoReadableRoots(t *testing.T) {
	svc := New(testConfig(t, filepath.Join(t.TempDir(), "missing")), nil, nil)
	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("expected startup diagnostic when no root is readable")
	}
}

func TestServiceListAndGet(t *testing.T) {
	root := t.TempDir()
	writeBrokenExtension(t, root, "beta-ext", "")
	writeBrokenExtension(t, root, "alpha-ext", "")

	svc := New(testConfig(t, root), nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	list := svc.List()
	if len(list) != 2 {
		t.Fatalf("List = %d entries", len(list))
	}
	if list[0].Descriptor.ID != "alpha-ext" || list[1].Descriptor.ID != "beta-ext" {
		t.Errorf("list order: %s, %s", list[0].Descriptor.ID, list[1].Descriptor.ID)
	}

	if _, err := svc.Get("nope"); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestServiceUnload(t *testing.T) {
	root := t.TempDir()
	writeBrokenExtension(t, root, "some-ext", "")

	svc := New(testConfig(t, root), nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	svc.Unload("some-ext")
	if _, ok := svc.loader.State("some-ext"); ok {
		t.Error("state should be cleared after unload")
	}
	// Still discovered until the next rescan drops it.
	if _, err := svc.Get("some-ext"); err != nil {
		t.Errorf("descriptor should remain discovered: %v", err)
	}
}

func TestServiceRenderPage(t *testing.T) {
	pages := testPagesStore(t)
	svc := New(testConfig(t), pages, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	ctx := context.Background()
	page := &stores.Page{Name: "Home", Route: "/", TypeID: "dashboard", LayoutID: "grid", Visible: true}
	if err := pages.CreatePage(ctx, page); err != nil {
		t.Fatal(err)
	}
	good := &stores.Panel{PageID: page.ID, TypeID: "notes", Title: "Scratch", W: 4, H: 3,
		Config: `{"title": "My Notes"}`}
	if err := pages.CreatePanel(ctx, good); err != nil {
		t.Fatal(err)
	}
	ghost := &stores.Panel{PageID: page.ID, TypeID: "ghost", Title: "Ghost", Y: 3}
	if err := pages.CreatePanel(ctx, ghost); err != nil {
		t.Fatal(err)
	}

	view, err := svc.RenderPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}

	if view.Layout.Entry == nil || view.Layout.Entry.ID != "grid" {
		t.Errorf("layout = %+v", view.Layout)
	}
	if len(view.Panels) != 2 {
		t.Fatalf("panels = %d, want both stored panels in the view", len(view.Panels))
	}

	resolved := view.Panels[0]
	if resolved.Entry == nil || resolved.Entry.ID != "notes" {
		t.Errorf("resolved panel = %+v", resolved)
	}
	if len(resolved.Controls) == 0 {
		t.Error("config schema should render controls")
	}
	// The stored value wins over the schema default.
	for _, c := range resolved.Controls {
		if c.FieldID == "title" && c.Value != "My Notes" {
			t.Errorf("title control value = %v", c.Value)
		}
	}

	fallback := view.Panels[1]
	if fallback.Fallback == nil {
		t.Fatal("dangling type must render a fallback, not vanish")
	}
	if fallback.Fallback.Reason != resolve.ReasonNotRegistered {
		t.Errorf("Reason = %q", fallback.Fallback.Reason)
	}

	byRoute, err := svc.RenderPageByRoute(ctx, "/")
	if err != nil {
		t.Fatalf("RenderPageByRoute: %v", err)
	}
	if byRoute.Page.ID != page.ID {
		t.Errorf("route render returned %s", byRoute.Page.ID)
	}
}

func TestServiceReloadUnknown(t *testing.T) {
	svc := New(testConfig(t), nil, nil)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	if err := svc.Reload(context.Background(), "nope"); err == nil {
		t.Error("expected error reloading unknown extension")
	}
}

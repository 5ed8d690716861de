package stores

import (
	"context"
	"errors"
	"testing"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	t.Cleanup(func() { store.Close() })
	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests database migrations
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)

	ctx := context.Background()

	tables := []string{"pages", "panels"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		err := store.db.QueryRowContext(ctx, query).Scan(&count)
		if err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

// TestPageCRUD tests Page CRUD operations
func TestPageCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	page := &Page{
		Name:    "Work",
		Route:   "/work",
		TypeID:  "dashboard",
		Visible: true,
	}
	if err := store.CreatePage(ctx, page); err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	if page.ID == "" {
		t.Fatal("CreatePage must assign an ID")
	}

	got, err := store.GetPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("failed to get page: %v", err)
	}
	if got.Name != "Work" || got.Route != "/work" || got.TypeID != "dashboard" {
		t.Errorf("got %+v", got)
	}
	if got.Config != "{}" {
		t.Errorf("empty config should default to {}, got %q", got.Config)
	}

	byRoute, err := store.GetPageByRoute(ctx, "/work")
	if err != nil {
		t.Fatalf("failed to get page by route: %v", err)
	}
	if byRoute.ID != page.ID {
		t.Errorf("route lookup returned %s, want %s", byRoute.ID, page.ID)
	}

	got.Name = "Work Board"
	got.Position = 3
	if err := store.UpdatePage(ctx, got); err != nil {
		t.Fatalf("failed to update page: %v", err)
	}
	updated, err := store.GetPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("failed to re-read page: %v", err)
	}
	if updated.Name != "Work Board" || updated.Position != 3 {
		t.Errorf("update not persisted: %+v", updated)
	}

	if err := store.DeletePage(ctx, page.ID); err != nil {
		t.Fatalf("failed to delete page: %v", err)
	}
	if _, err := store.GetPage(ctx, page.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

// TestPageListOrder tests that pages list by position
func TestPageListOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"Third", "First", "Second"} {
		pos := []int{2, 0, 1}[i]
		page := &Page{Name: name, Route: "/" + name, TypeID: "dashboard", Position: pos, Visible: true}
		if err := store.CreatePage(ctx, page); err != nil {
			t.Fatalf("failed to create page: %v", err)
		}
	}

	pages, err := store.ListPages(ctx)
	if err != nil {
		t.Fatalf("failed to list pages: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	want := []string{"First", "Second", "Third"}
	for i, p := range pages {
		if p.Name != want[i] {
			t.Errorf("pages[%d] = %s, want %s", i, p.Name, want[i])
		}
	}
}

// TestPanelCRUD tests Panel CRUD operations
func TestPanelCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	page := &Page{Name: "Home", Route: "/", TypeID: "dashboard", Visible: true}
	if err := store.CreatePage(ctx, page); err != nil {
		t.Fatalf("failed to create page: %v", err)
	}

	panel := &Panel{
		PageID: page.ID,
		TypeID: "notes",
		Title:  "Scratch",
		X:      0, Y: 0, W: 4, H: 3,
		Config: `{"accent":"#4f46e5"}`,
	}
	if err := store.CreatePanel(ctx, panel); err != nil {
		t.Fatalf("failed to create panel: %v", err)
	}

	got, err := store.GetPanel(ctx, panel.ID)
	if err != nil {
		t.Fatalf("failed to get panel: %v", err)
	}
	if got.TypeID != "notes" || got.Config != `{"accent":"#4f46e5"}` {
		t.Errorf("got %+v", got)
	}

	if err := store.MovePanel(ctx, panel.ID, 4, 0, 8, 6); err != nil {
		t.Fatalf("failed to move panel: %v", err)
	}
	moved, err := store.GetPanel(ctx, panel.ID)
	if err != nil {
		t.Fatalf("failed to re-read panel: %v", err)
	}
	if moved.X != 4 || moved.W != 8 || moved.H != 6 {
		t.Errorf("move not persisted: %+v", moved)
	}

	moved.Title = "Scratchpad"
	if err := store.UpdatePanel(ctx, moved); err != nil {
		t.Fatalf("failed to update panel: %v", err)
	}

	panels, err := store.ListPanels(ctx, page.ID)
	if err != nil {
		t.Fatalf("failed to list panels: %v", err)
	}
	if len(panels) != 1 || panels[0].Title != "Scratchpad" {
		t.Errorf("panels = %+v", panels)
	}

	if err := store.DeletePanel(ctx, panel.ID); err != nil {
		t.Fatalf("failed to delete panel: %v", err)
	}
	if _, err := store.GetPanel(ctx, panel.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

// TestDeletePageCascades tests that deleting a page removes its panels
func TestDeletePageCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	page := &Page{Name: "Home", Route: "/", TypeID: "dashboard", Visible: true}
	if err := store.CreatePage(ctx, page); err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	panel := &Panel{PageID: page.ID, TypeID: "notes"}
	if err := store.CreatePanel(ctx, panel); err != nil {
		t.Fatalf("failed to create panel: %v", err)
	}

	if err := store.DeletePage(ctx, page.ID); err != nil {
		t.Fatalf("failed to delete page: %v", err)
	}
	if _, err := store.GetPanel(ctx, panel.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("panel should cascade with its page, got %v", err)
	}
}

// TestDanglingTypeIDAllowed tests that panels may reference unregistered types
func TestDanglingTypeIDAllowed(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	page := &Page{Name: "Home", Route: "/", TypeID: "dashboard", Visible: true}
	if err := store.CreatePage(ctx, page); err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	panel := &Panel{PageID: page.ID, TypeID: "removed-extension-panel"}
	if err := store.CreatePanel(ctx, panel); err != nil {
		t.Fatalf("dangling type_id must be storable: %v", err)
	}
}

// TestNotFoundErrors tests ErrNotFound on missing rows
func TestNotFoundErrors(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.GetPage(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPage: %v", err)
	}
	if err := store.DeletePage(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeletePage: %v", err)
	}
	if err := store.MovePanel(ctx, "nope", 0, 0, 1, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("MovePanel: %v", err)
	}
}

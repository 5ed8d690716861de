package stores

import (
	"context"
	"time"
)

// Page represents a user-created page backed by a registered page type.
type Page struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Route     string    `json:"route"`
	TypeID    string    `json:"type_id"`
	LayoutID  string    `json:"layout_id"`
	Icon      *string   `json:"icon,omitempty"`
	Position  int       `json:"position"`
	Visible   bool      `json:"visible"`
	Config    string    `json:"config"` // JSON blob
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Panel represents a panel instance placed on a page. TypeID references
// a panel registry entry; the reference may dangle if the registering
// extension is removed, which the resolution layer turns into a
// fallback at render time.
type Panel struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	TypeID    string    `json:"type_id"`
	Title     string    `json:"title"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	W         int       `json:"w"`
	H         int       `json:"h"`
	Config    string    `json:"config"` // JSON blob
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the persistence interface for pages and panels.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	// Pages
	CreatePage(ctx context.Context, page *Page) error
	GetPage(ctx context.Context, id string) (*Page, error)
	GetPageByRoute(ctx context.Context, route string) (*Page, error)
	ListPages(ctx context.Context) ([]*Page, error)
	UpdatePage(ctx context.Context, page *Page) error
	DeletePage(ctx context.Context, id string) error

	// Panels
	CreatePanel(ctx context.Context, panel *Panel) error
	GetPanel(ctx context.Context, id string) (*Panel, error)
	ListPanels(ctx context.Context, pageID string) ([]*Panel, error)
	UpdatePanel(ctx context.Context, panel *Panel) error
	MovePanel(ctx context.Context, id string, x, y, w, h int) error
	DeletePanel(ctx context.Context, id string) error
}

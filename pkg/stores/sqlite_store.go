package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a page or panel does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Each pooled connection to :memory: would be a distinct database.
	if s.path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// HealthCheck verifies the database connection is alive
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreatePage creates a new page record. An empty ID is assigned a UUID.
func (s *SQLiteStore) CreatePage(ctx context.Context, page *Page) error {
	if page.ID == "" {
		page.ID = uuid.NewString()
	}
	now := time.Now()
	if page.CreatedAt.IsZero() {
		page.CreatedAt = now
	}
	page.UpdatedAt = now
	if page.Config == "" {
		page.Config = "{}"
	}
	if page.LayoutID == "" {
		page.LayoutID = "grid"
	}

	query := `
		INSERT INTO pages (id, name, route, type_id, layout_id, icon, position, visible, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		page.ID,
		page.Name,
		page.Route,
		page.TypeID,
		page.LayoutID,
		page.Icon,
		page.Position,
		page.Visible,
		page.Config,
		page.CreatedAt,
		page.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	return nil
}

// GetPage retrieves a page by ID
func (s *SQLiteStore) GetPage(ctx context.Context, id string) (*Page, error) {
	return s.getPage(ctx, "id = ?", id)
}

// GetPageByRoute retrieves a page by its route
func (s *SQLiteStore) GetPageByRoute(ctx context.Context, route string) (*Page, error) {
	return s.getPage(ctx, "route = ?", route)
}

func (s *SQLiteStore) getPage(ctx context.Context, where string, arg any) (*Page, error) {
	query := `
		SELECT id, name, route, type_id, layout_id, icon, position, visible, config, created_at, updated_at
		FROM pages
		WHERE ` + where

	page := &Page{}
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&page.ID,
		&page.Name,
		&page.Route,
		&page.TypeID,
		&page.LayoutID,
		&page.Icon,
		&page.Position,
		&page.Visible,
		&page.Config,
		&page.CreatedAt,
		&page.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	return page, nil
}

// ListPages lists all pages ordered by position
func (s *SQLiteStore) ListPages(ctx context.Context) ([]*Page, error) {
	query := `
		SELECT id, name, route, type_id, layout_id, icon, position, visible, config, created_at, updated_at
		FROM pages
		ORDER BY position ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	defer rows.Close()

	pages := []*Page{}
	for rows.Next() {
		page := &Page{}
		err := rows.Scan(
			&page.ID,
			&page.Name,
			&page.Route,
			&page.TypeID,
			&page.LayoutID,
			&page.Icon,
			&page.Position,
			&page.Visible,
			&page.Config,
			&page.CreatedAt,
			&page.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}

	return pages, rows.Err()
}

// UpdatePage updates an existing page
func (s *SQLiteStore) UpdatePage(ctx context.Context, page *Page) error {
	page.UpdatedAt = time.Now()

	query := `
		UPDATE pages
		SET name = ?, route = ?, type_id = ?, layout_id = ?, icon = ?, position = ?, visible = ?, config = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		page.Name,
		page.Route,
		page.TypeID,
		page.LayoutID,
		page.Icon,
		page.Position,
		page.Visible,
		page.Config,
		page.UpdatedAt,
		page.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}

	return checkAffected(result, page.ID)
}

// DeletePage deletes a page; its panels are removed by cascade.
func (s *SQLiteStore) DeletePage(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM pages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	return checkAffected(result, id)
}

// CreatePanel creates a new panel record. An empty ID is assigned a UUID.
func (s *SQLiteStore) CreatePanel(ctx context.Context, panel *Panel) error {
	if panel.ID == "" {
		panel.ID = uuid.NewString()
	}
	now := time.Now()
	if panel.CreatedAt.IsZero() {
		panel.CreatedAt = now
	}
	panel.UpdatedAt = now
	if panel.Config == "" {
		panel.Config = "{}"
	}

	query := `
		INSERT INTO panels (id, page_id, type_id, title, x, y, w, h, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		panel.ID,
		panel.PageID,
		panel.TypeID,
		panel.Title,
		panel.X,
		panel.Y,
		panel.W,
		panel.H,
		panel.Config,
		panel.CreatedAt,
		panel.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create panel: %w", err)
	}

	return nil
}

// GetPanel retrieves a panel by ID
func (s *SQLiteStore) GetPanel(ctx context.Context, id string) (*Panel, error) {
	query := `
		SELECT id, page_id, type_id, title, x, y, w, h, config, created_at, updated_at
		FROM panels
		WHERE id = ?
	`

	panel := &Panel{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&panel.ID,
		&panel.PageID,
		&panel.TypeID,
		&panel.Title,
		&panel.X,
		&panel.Y,
		&panel.W,
		&panel.H,
		&panel.Config,
		&panel.CreatedAt,
		&panel.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("panel %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get panel: %w", err)
	}

	return panel, nil
}

// ListPanels lists the panels on a page in stable placement order
func (s *SQLiteStore) ListPanels(ctx context.Context, pageID string) ([]*Panel, error) {
	query := `
		SELECT id, page_id, type_id, title, x, y, w, h, config, created_at, updated_at
		FROM panels
		WHERE page_id = ?
		ORDER BY y ASC, x ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list panels: %w", err)
	}
	defer rows.Close()

	panels := []*Panel{}
	for rows.Next() {
		panel := &Panel{}
		err := rows.Scan(
			&panel.ID,
			&panel.PageID,
			&panel.TypeID,
			&panel.Title,
			&panel.X,
			&panel.Y,
			&panel.W,
			&panel.H,
			&panel.Config,
			&panel.CreatedAt,
			&panel.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan panel: %w", err)
		}
		panels = append(panels, panel)
	}

	return panels, rows.Err()
}

// UpdatePanel updates an existing panel
func (s *SQLiteStore) UpdatePanel(ctx context.Context, panel *Panel) error {
	panel.UpdatedAt = time.Now()

	query := `
		UPDATE panels
		SET type_id = ?, title = ?, x = ?, y = ?, w = ?, h = ?, config = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		panel.TypeID,
		panel.Title,
		panel.X,
		panel.Y,
		panel.W,
		panel.H,
		panel.Config,
		panel.UpdatedAt,
		panel.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update panel: %w", err)
	}

	return checkAffected(result, panel.ID)
}

// MovePanel updates only a panel's grid placement
func (s *SQLiteStore) MovePanel(ctx context.Context, id string, x, y, w, h int) error {
	query := `
		UPDATE panels
		SET x = ?, y = ?, w = ?, h = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, x, y, w, h, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to move panel: %w", err)
	}
	return checkAffected(result, id)
}

// DeletePanel deletes a panel
func (s *SQLiteStore) DeletePanel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM panels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete panel: %w", err)
	}
	return checkAffected(result, id)
}

func checkAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

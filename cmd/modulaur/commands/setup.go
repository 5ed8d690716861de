package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modulaur/modulaur/pkg/config"
	"github.com/modulaur/modulaur/pkg/host"
	"github.com/modulaur/modulaur/pkg/stores"
	"github.com/modulaur/modulaur/pkg/telemetry"
)

// newService assembles and starts the extension subsystem. The cleanup
// function must be called before the command exits. Commands that do
// not touch pages pass withPages=false and skip the database entirely.
func newService(ctx context.Context, withPages bool) (*host.Service, func(), error) {
	svc, _, cleanup, err := newServiceWithTelemetry(ctx, withPages)
	return svc, cleanup, err
}

// newServiceWithTelemetry is newService for the one command that also
// needs the telemetry bundle (serve starts the metrics listener).
func newServiceWithTelemetry(ctx context.Context, withPages bool) (*host.Service, *telemetry.Telemetry, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	tel, err := telemetry.NewTelemetry(&cfg.Telemetry)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	var pages stores.Store
	var pagesStore *stores.SQLiteStore
	if withPages {
		pagesStore, err = openPages(ctx, cfg)
		if err != nil {
			_ = tel.Shutdown(ctx)
			return nil, nil, nil, err
		}
		pages = pagesStore
	}

	svc := host.New(cfg, pages, tel)
	if err := svc.Start(ctx); err != nil {
		if pagesStore != nil {
			_ = pagesStore.Close()
		}
		_ = tel.Shutdown(ctx)
		return nil, nil, nil, err
	}

	cleanup := func() {
		svc.Stop()
		if pagesStore != nil {
			_ = pagesStore.Close()
		}
		_ = tel.Shutdown(context.Background())
	}
	return svc, tel, cleanup, nil
}

func openPages(ctx context.Context, cfg *config.Config) (*stores.SQLiteStore, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Database.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// Package host wires the extension subsystem together: manifest
// discovery, loading, type registries, resolution, persistence, and
// the operations the application surface exposes over them.
package host

import (
	"context"
	"sort"
	"time"

	"github.com/modulaur/modulaur/pkg/config"
	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/extension/loader"
	"github.com/modulaur/modulaur/pkg/extension/manifest"
	"github.com/modulaur/modulaur/pkg/registry"
	"github.com/modulaur/modulaur/pkg/resolve"
	"github.com/modulaur/modulaur/pkg/stores"
	"github.com/modulaur/modulaur/pkg/telemetry"
)

// Service owns the extension subsystem for one host process.
type Service struct {
	cfg        *config.Config
	store      *manifest.Store
	registries *registry.Set
	loader     *loader.Loader
	resolver   *resolve.Resolver
	pages      stores.Store

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher

	watcher *Watcher
}

// ExtensionInfo is the host's view of one discovered extension.
type ExtensionInfo struct {
	Descriptor extension.Descriptor `json:"descriptor"`
	State      extension.LoadState  `json:"state"`
}

// Status summarizes the whole subsystem.
type Status struct {
	Discovered int             `json:"discovered"`
	Loaded     int             `json:"loaded"`
	Failed     int             `json:"failed"`
	Skipped    []manifest.Skip `json:"skipped,omitempty"`
	Registries map[string]int  `json:"registries"`
	LastScan   time.Time       `json:"last_scan"`
}

// New assembles a service from configuration. The pages store may be
// nil for commands that only inspect extensions.
func New(cfg *config.Config, pages stores.Store, tel *telemetry.Telemetry) *Service {
	logger := telemetry.NopLogger()
	var metrics *telemetry.Metrics
	var events *telemetry.EventPublisher
	var tracer *telemetry.Tracer
	if tel != nil {
		logger = tel.Logger
		metrics = tel.Metrics
		events = tel.Events
		tracer = tel.Tracer
	}

	store := manifest.NewStore(cfg.Plugins.Roots,
		manifest.WithLogger(logger.NewComponentLogger("scanner")),
		manifest.WithMetrics(metrics),
		manifest.WithEvents(events),
	)

	registries := registry.NewSet(
		registry.WithLogger(logger.NewComponentLogger("registry")),
		registry.WithMetrics(metrics),
		registry.WithEvents(events),
	)
	registry.SeedBuiltins(registries)

	ld := loader.New(store, registries,
		loader.WithLogger(logger.NewComponentLogger("loader")),
		loader.WithMetrics(metrics),
		loader.WithEvents(events),
		loader.WithTracer(tracer),
		loader.WithRuntimeConfig(loader.RuntimeConfig{
			Timeout:          cfg.Plugins.LoadTimeout,
			MemoryLimitPages: cfg.Plugins.MemoryLimitPages,
		}),
	)

	resolver := resolve.New(registries, store, ld,
		resolve.WithLogger(logger.NewComponentLogger("resolver")),
		resolve.WithMetrics(metrics),
		resolve.WithEvents(events),
	)

	return &Service{
		cfg:        cfg,
		store:      store,
		registries: registries,
		loader:     ld,
		resolver:   resolver,
		pages:      pages,
		logger:     logger.NewComponentLogger("host"),
		metrics:    metrics,
		events:     events,
	}
}

// Start scans the plugin roots and loads every discovered extension.
// A failed scan of all roots is the only fatal outcome.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.store.Scan(ctx); err != nil {
		return err
	}
	loaded, failed := s.loader.LoadAll(ctx)
	s.logger.WithField("loaded", loaded).
		WithField("failed", failed).
		Info("Extension subsystem started")

	if s.cfg.Plugins.Watch {
		w, err := NewWatcher(s, s.cfg.Plugins.WatchDebounce, s.logger.NewComponentLogger("watcher"))
		if err != nil {
			return err
		}
		s.watcher = w
		w.Start(ctx)
	}
	return nil
}

// Stop shuts down the watcher if one is running.
func (s *Service) Stop() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

// List returns every discovered extension with its load state, sorted
// by ID.
func (s *Service) List() []ExtensionInfo {
	states := s.loader.States()
	descriptors := s.store.All()

	out := make([]ExtensionInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, ExtensionInfo{Descriptor: d, State: states[d.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Descriptor.ID < out[j].Descriptor.ID })
	return out
}

// Get returns one extension's descriptor and load state.
func (s *Service) Get(id string) (ExtensionInfo, error) {
	d, ok := s.store.Get(id)
	if !ok {
		return ExtensionInfo{}, extension.NewLoadError("extension is not in the manifest snapshot", nil).
			WithCode(extension.ErrCodeNotFound).WithExtension(id)
	}
	state, _ := s.loader.State(d.ID)
	return ExtensionInfo{Descriptor: d, State: state}, nil
}

// Reload reloads one extension from disk.
func (s *Service) Reload(ctx context.Context, id string) error {
	if _, err := s.store.Scan(ctx); err != nil {
		return err
	}
	return s.loader.Reload(ctx, id)
}

// ReloadAll rescans the roots and reloads everything. Returns how many
// extensions loaded.
func (s *Service) ReloadAll(ctx context.Context) (int, error) {
	return s.loader.ReloadAll(ctx)
}

// Unload drops an extension's registered units. The extension stays
// discovered and can be loaded again.
func (s *Service) Unload(id string) int {
	return s.loader.Unload(id)
}

// Status reports subsystem counts for diagnostics.
func (s *Service) Status() Status {
	loaded, failed := 0, 0
	for _, state := range s.loader.States() {
		switch state.Phase {
		case extension.LoadLoaded:
			loaded++
		case extension.LoadFailed:
			failed++
		}
	}

	registries := make(map[string]int, len(extension.Kinds()))
	for _, kind := range extension.Kinds() {
		if r, err := s.registries.ByKind(kind); err == nil {
			registries[string(kind)] = r.Len()
		}
	}

	return Status{
		Discovered: s.store.Len(),
		Loaded:     loaded,
		Failed:     failed,
		Skipped:    s.store.Skipped(),
		Registries: registries,
		LastScan:   s.store.LastScan(),
	}
}

// Registries exposes the registry set.
func (s *Service) Registries() *registry.Set { return s.registries }

// Resolver exposes the resolution layer.
func (s *Service) Resolver() *resolve.Resolver { return s.resolver }

// Manifests exposes the manifest store.
func (s *Service) Manifests() *manifest.Store { return s.store }

// Pages exposes the persistence store. It is nil when the service was
// assembled without one.
func (s *Service) Pages() stores.Store { return s.pages }

// Styles returns the stylesheet an extension shipped, if any.
func (s *Service) Styles(id string) ([]byte, bool) {
	return s.loader.Styles(id)
}

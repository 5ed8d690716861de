// Package loader executes extension code bundles and registers the
// renderable units they yield. Each extension loads in isolation: a
// failing bundle is recorded as failed and never blocks its neighbors,
// and a descriptor's units become visible all at once or not at all.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/extension/manifest"
	"github.com/modulaur/modulaur/pkg/registry"
	"github.com/modulaur/modulaur/pkg/telemetry"
)

// Loader drives the per-extension load lifecycle.
type Loader struct {
	store      *manifest.Store
	registries *registry.Set
	runtimeCfg RuntimeConfig

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher
	tracer  *telemetry.Tracer

	// run executes a bundle's registration call. Swappable in tests.
	run func(context.Context, []byte, RuntimeConfig) ([]registeredComponent, error)

	// mu guards states, styles, and the keyed lock table.
	mu     sync.Mutex
	states map[string]extension.LoadState
	styles map[string][]byte
	locks  map[string]*sync.Mutex
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithMetrics sets the loader's metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(ld *Loader) { ld.metrics = m }
}

// WithEvents sets the loader's event publisher.
func WithEvents(e *telemetry.EventPublisher) Option {
	return func(ld *Loader) { ld.events = e }
}

// WithTracer sets the loader's tracer.
func WithTracer(t *telemetry.Tracer) Option {
	return func(ld *Loader) { ld.tracer = t }
}

// WithRuntimeConfig overrides the bundle execution limits.
func WithRuntimeConfig(cfg RuntimeConfig) Option {
	return func(ld *Loader) { ld.runtimeCfg = cfg }
}

// New creates a loader over a manifest store and a registry set.
func New(store *manifest.Store, registries *registry.Set, opts ...Option) *Loader {
	ld := &Loader{
		store:      store,
		registries: registries,
		runtimeCfg: DefaultRuntimeConfig(),
		run:        executeRegistration,
		logger:     telemetry.NopLogger(),
		states:     make(map[string]extension.LoadState),
		styles:     make(map[string][]byte),
		locks:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// lockFor returns the keyed mutex serializing operations on one
// extension. Concurrent loads or reloads of the same extension queue;
// different extensions proceed in parallel.
func (ld *Loader) lockFor(id string) *sync.Mutex {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	l, ok := ld.locks[id]
	if !ok {
		l = &sync.Mutex{}
		ld.locks[id] = l
	}
	return l
}

// LoadAll loads every discovered extension. Failures are isolated and
// counted; the return values are how many extensions loaded and how
// many failed.
func (ld *Loader) LoadAll(ctx context.Context) (loaded, failed int) {
	for _, d := range ld.store.All() {
		if err := ld.Load(ctx, d.ID); err != nil {
			failed++
			continue
		}
		loaded++
	}
	if ld.metrics != nil {
		ld.metrics.SetFailedExtensions(float64(failed))
	}
	return loaded, failed
}

// Load executes one extension's bundle and commits its units. An
// extension already in the loaded phase is left alone; use Reload to
// force re-execution. A load that fails at any stage leaves the
// registries untouched for that extension and records the failure
// reason.
func (ld *Loader) Load(ctx context.Context, id string) error {
	l := ld.lockFor(id)
	l.Lock()
	defer l.Unlock()

	if state, ok := ld.State(id); ok && state.Phase == extension.LoadLoaded {
		return nil
	}

	d, ok := ld.store.Get(id)
	if !ok {
		return extension.NewLoadError("extension is not in the manifest snapshot", nil).
			WithCode(extension.ErrCodeNotFound).WithExtension(id)
	}
	return ld.load(ctx, d)
}

func (ld *Loader) load(ctx context.Context, d extension.Descriptor) error {
	start := time.Now()
	ld.setState(d.ID, extension.LoadState{Phase: extension.LoadPending, UpdatedAt: start})

	ctx, endSpan := ld.startSpan(ctx, d)
	defer endSpan()

	log := ld.logger.WithExtension(d.ID, d.Version)

	units, style, err := ld.execute(ctx, d)
	if err != nil {
		ld.fail(d.ID, err, time.Since(start))
		log.WithError(err).Warn("Extension failed to load")
		return err
	}

	if err := ld.registries.Commit(d.ID, units); err != nil {
		ld.fail(d.ID, err, time.Since(start))
		log.WithError(err).Warn("Extension registration rejected")
		return err
	}

	ld.mu.Lock()
	if style != nil {
		ld.styles[d.ID] = style
	} else {
		delete(ld.styles, d.ID)
	}
	ld.states[d.ID] = extension.LoadState{
		Phase:     extension.LoadLoaded,
		Units:     len(units),
		UpdatedAt: time.Now(),
	}
	ld.mu.Unlock()

	duration := time.Since(start)
	log.WithField("units", len(units)).
		WithField("duration_ms", duration.Milliseconds()).
		Info("Extension loaded")
	if ld.metrics != nil {
		ld.metrics.RecordLoad("success", duration)
	}
	if ld.events != nil {
		ld.events.PublishExtensionLoaded(d.ID, d.Version, len(units))
	}
	return nil
}

// execute reads the bundle and stylesheet, runs the registration call,
// and converts the yielded components into registry entries. Nothing is
// committed here.
func (ld *Loader) execute(ctx context.Context, d extension.Descriptor) ([]registry.Entry, []byte, error) {
	entryPath := filepath.Join(d.Dir, filepath.FromSlash(d.Entry))
	wasmBytes, err := os.ReadFile(entryPath)
	if err != nil {
		return nil, nil, extension.NewLoadError("failed to read bundle", err).
			WithCode(extension.ErrCodeFetch).WithExtension(d.ID).WithPath(entryPath)
	}

	var style []byte
	if d.CSS != "" {
		cssPath := filepath.Join(d.Dir, filepath.FromSlash(d.CSS))
		style, err = os.ReadFile(cssPath)
		if err != nil {
			return nil, nil, extension.NewLoadError("failed to read stylesheet", err).
				WithCode(extension.ErrCodeFetch).WithExtension(d.ID).WithPath(cssPath)
		}
	}

	components, err := ld.run(ctx, wasmBytes, ld.runtimeCfg)
	if err != nil {
		var herr *extension.HostError
		if asHostError(err, &herr) {
			herr.Extension = d.ID
		}
		return nil, nil, err
	}

	entries := make([]registry.Entry, 0, len(components))
	for _, c := range components {
		if c.ID == "" {
			return nil, nil, extension.NewLoadError("registered component has no id", nil).
				WithCode(extension.ErrCodeBadUnit).WithExtension(d.ID)
		}
		if !c.Kind.Valid() {
			return nil, nil, extension.NewLoadError(
				fmt.Sprintf("component %q has unknown kind %q", c.ID, c.Kind), nil).
				WithCode(extension.ErrCodeUnknownKind).WithExtension(d.ID)
		}
		export := c.Export
		if export == "" {
			export = c.ID
		}
		entries = append(entries, registry.Entry{
			ID:            c.ID,
			Kind:          c.Kind,
			Ref:           registry.ComponentRef{Module: d.ID, Export: export},
			Source:        d.ID,
			DisplayName:   c.DisplayName,
			Description:   c.Description,
			Icon:          c.Icon,
			Category:      c.Category,
			ConfigSchema:  c.ConfigSchema,
			DefaultConfig: c.DefaultConfig,
		})
	}
	return entries, style, nil
}

// Reload unregisters one extension's units and loads it again from the
// current manifest snapshot. Concurrent reloads of the same extension
// queue behind each other.
func (ld *Loader) Reload(ctx context.Context, id string) error {
	l := ld.lockFor(id)
	l.Lock()
	defer l.Unlock()

	d, ok := ld.store.Get(id)
	if !ok {
		// The extension vanished from disk; drop whatever it had
		// registered.
		removed := ld.registries.UnregisterSource(id)
		ld.clearState(id)
		if ld.events != nil {
			ld.events.PublishExtensionUnloaded(id, removed)
		}
		return extension.NewLoadError("extension is not in the manifest snapshot", nil).
			WithCode(extension.ErrCodeNotFound).WithExtension(id)
	}

	ld.registries.UnregisterSource(id)
	err := ld.load(ctx, d)
	if ld.metrics != nil {
		result := "success"
		if err != nil {
			result = "error"
		}
		ld.metrics.RecordReload(result)
	}
	if err == nil && ld.events != nil {
		ld.events.PublishExtensionReloaded(id)
	}
	return err
}

// ReloadAll rescans the manifest roots and reloads everything: units
// from extensions that disappeared are dropped, new extensions load,
// surviving ones re-register. Returns how many extensions loaded.
func (ld *Loader) ReloadAll(ctx context.Context) (int, error) {
	before := make(map[string]bool)
	for _, d := range ld.store.All() {
		before[d.ID] = true
	}

	if _, err := ld.store.Scan(ctx); err != nil {
		return 0, err
	}

	after := ld.store.All()
	for _, d := range after {
		delete(before, d.ID)
	}
	// Extensions gone from disk.
	for id := range before {
		ld.Unload(id)
	}

	loaded := 0
	for _, d := range after {
		if err := ld.Reload(ctx, d.ID); err == nil {
			loaded++
		}
	}
	if ld.metrics != nil {
		ld.metrics.SetFailedExtensions(float64(len(after) - loaded))
	}
	return loaded, nil
}

// Unload removes an extension's units and load state. The descriptor
// stays in the manifest snapshot until the next rescan.
func (ld *Loader) Unload(id string) int {
	l := ld.lockFor(id)
	l.Lock()
	defer l.Unlock()

	removed := ld.registries.UnregisterSource(id)
	ld.clearState(id)
	ld.logger.WithField("extension_id", id).
		WithField("units", removed).
		Info("Extension unloaded")
	if ld.events != nil {
		ld.events.PublishExtensionUnloaded(id, removed)
	}
	return removed
}

// State returns the load state for one extension.
func (ld *Loader) State(id string) (extension.LoadState, bool) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	s, ok := ld.states[id]
	return s, ok
}

// States returns a copy of every extension's load state.
func (ld *Loader) States() map[string]extension.LoadState {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	out := make(map[string]extension.LoadState, len(ld.states))
	for id, s := range ld.states {
		out[id] = s
	}
	return out
}

// Styles returns the stylesheet bytes loaded for an extension, if any.
func (ld *Loader) Styles(id string) ([]byte, bool) {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	s, ok := ld.styles[id]
	return s, ok
}

func (ld *Loader) setState(id string, s extension.LoadState) {
	ld.mu.Lock()
	ld.states[id] = s
	ld.mu.Unlock()
}

func (ld *Loader) clearState(id string) {
	ld.mu.Lock()
	delete(ld.states, id)
	delete(ld.styles, id)
	ld.mu.Unlock()
}

func (ld *Loader) fail(id string, err error, duration time.Duration) {
	ld.setState(id, extension.LoadState{
		Phase:     extension.LoadFailed,
		Reason:    err.Error(),
		UpdatedAt: time.Now(),
	})
	if ld.metrics != nil {
		ld.metrics.RecordLoad("error", duration)
		ld.metrics.RecordError(string(extension.ErrorClassLoad))
	}
	if ld.events != nil {
		ld.events.PublishExtensionFailed(id, err.Error())
	}
}

func (ld *Loader) startSpan(ctx context.Context, d extension.Descriptor) (context.Context, func()) {
	if ld.tracer == nil {
		return ctx, func() {}
	}
	ctx, span := ld.tracer.StartLoadSpan(ctx, d.ID, d.Version)
	return ctx, func() { span.End() }
}

func asHostError(err error, target **extension.HostError) bool {
	return errors.As(err, target)
}

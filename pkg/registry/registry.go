// Package registry implements the type registries that map stable string
// identifiers to renderable units. One Registry exists per kind (page,
// panel, layout); a Set groups them and provides the atomic batch commit
// the extension loader relies on. Registries are explicit objects passed
// to their consumers, never package-level singletons, so tests can build
// isolated instances.
package registry

import (
	"sort"
	"sync"

	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/fieldschema"
	"github.com/modulaur/modulaur/pkg/telemetry"
)

// SourceBuiltin marks entries registered by the host at startup.
const SourceBuiltin = "builtin"

// ComponentRef identifies the renderable implementation backing an
// entry: the module that provides it (an extension ID, or "builtin")
// and the component export inside that module.
type ComponentRef struct {
	// Module is the providing extension ID, or SourceBuiltin.
	Module string `json:"module"`

	// Export is the component identifier inside the module.
	Export string `json:"export"`
}

// Entry is one renderable unit addressable by a type identifier.
type Entry struct {
	// ID is the type identifier, unique within one registry.
	ID string `json:"id"`

	// Kind is the registry kind the entry belongs to.
	Kind extension.Kind `json:"kind"`

	// Ref points at the renderable implementation.
	Ref ComponentRef `json:"ref"`

	// Source is the extension ID that registered the entry, or
	// SourceBuiltin. Used to attribute entries during unregistration
	// and to classify overwrite collisions.
	Source string `json:"source"`

	// DisplayName is the human-readable name shown in pickers.
	DisplayName string `json:"displayName,omitempty"`

	// Description explains what the unit renders.
	Description string `json:"description,omitempty"`

	// Icon is an optional icon name.
	Icon string `json:"icon,omitempty"`

	// Category groups entries in pickers.
	Category string `json:"category,omitempty"`

	// ConfigSchema is the declarative schema for the unit's config.
	ConfigSchema []fieldschema.Field `json:"configSchema,omitempty"`

	// DefaultConfig is the config applied to new instances.
	DefaultConfig map[string]any `json:"defaultConfig,omitempty"`
}

// Registry is a keyed map from type identifier to Entry for one kind.
// Registration is atomic per entry: readers never observe a
// half-constructed entry. A later registration with an existing ID
// replaces the earlier one (last-write-wins) and is logged.
type Registry struct {
	kind extension.Kind

	mu      sync.RWMutex
	entries map[string]Entry

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher
}

// Option configures a Registry or Set.
type Option func(*options)

type options struct {
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher
}

// WithLogger attaches a logger for overwrite and lifecycle diagnostics.
func WithLogger(l *telemetry.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithEvents attaches an event publisher.
func WithEvents(e *telemetry.EventPublisher) Option {
	return func(o *options) { o.events = e }
}

// New creates an empty registry for one kind.
func New(kind extension.Kind, opts ...Option) *Registry {
	o := applyOptions(opts)
	return &Registry{
		kind:    kind,
		entries: make(map[string]Entry),
		logger:  o.logger,
		metrics: o.metrics,
		events:  o.events,
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Kind returns the registry's kind.
func (r *Registry) Kind() extension.Kind {
	return r.kind
}

// Register inserts or replaces an entry. A collision applies
// last-write-wins and logs the overwrite, distinguishing an intentional
// builtin override from an accidental collision between two unrelated
// extensions.
func (r *Registry) Register(entry Entry) {
	r.mu.Lock()
	prior, existed := r.entries[entry.ID]
	r.entries[entry.ID] = entry
	size := len(r.entries)
	r.mu.Unlock()

	if existed {
		r.logOverride(prior, entry)
	}
	if r.metrics != nil {
		r.metrics.SetRegistryEntries(string(r.kind), float64(size))
	}
}

// Unregister removes an entry by ID. Removing an absent ID is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	size := len(r.entries)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetRegistryEntries(string(r.kind), float64(size))
	}
}

// Get returns the entry for an ID, if present.
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// All returns every entry, sorted by ID for deterministic iteration.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// IDs returns every registered type identifier, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// unregisterSource removes every entry attributed to one source and
// returns how many were removed. Callers hold no registry lock.
func (r *Registry) unregisterSource(source string) int {
	r.mu.Lock()
	removed := 0
	for id, e := range r.entries {
		if e.Source == source {
			delete(r.entries, id)
			removed++
		}
	}
	size := len(r.entries)
	r.mu.Unlock()

	if removed > 0 && r.metrics != nil {
		r.metrics.SetRegistryEntries(string(r.kind), float64(size))
	}
	return removed
}

// collisionClass names the flavor of an overwrite for logs and metrics.
func collisionClass(prior, next Entry) string {
	switch {
	case prior.Source == SourceBuiltin:
		return "builtin-override"
	case prior.Source == next.Source:
		return "re-register"
	default:
		return "extension-collision"
	}
}

func (r *Registry) logOverride(prior, next Entry) {
	class := collisionClass(prior, next)

	if r.logger != nil {
		log := r.logger.WithTypeID(string(r.kind), next.ID).WithFields(map[string]interface{}{
			"old_source": prior.Source,
			"new_source": next.Source,
			"collision":  class,
		})
		switch class {
		case "builtin-override":
			log.Info("extension overrides built-in type")
		case "re-register":
			log.Debug("extension re-registered its own type")
		default:
			log.Warn("type identifier collision between unrelated extensions")
		}
	}
	if r.metrics != nil {
		r.metrics.RecordRegistryOverride(string(r.kind), class)
	}
	if r.events != nil {
		_ = r.events.PublishRegistryOverride(string(r.kind), next.ID, prior.Source, next.Source, class)
	}
}

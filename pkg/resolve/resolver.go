// Package resolve maps stored type identifiers to registry entries.
// Resolution never fails hard: an identifier that cannot be resolved
// yields a fallback describing what is known about it, so a page full
// of panels renders around the one that is missing.
package resolve

import (
	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/extension/manifest"
	"github.com/modulaur/modulaur/pkg/registry"
	"github.com/modulaur/modulaur/pkg/telemetry"
)

// Miss reasons surfaced in fallbacks.
const (
	// ReasonNotRegistered means nothing ever registered the identifier.
	ReasonNotRegistered = "not registered"

	// ReasonExtensionFailed means a discovered extension declares the
	// identifier but failed to load.
	ReasonExtensionFailed = "registered but its extension failed to load"
)

// Fallback is what a miss resolves to.
type Fallback struct {
	// Kind is the registry that was consulted.
	Kind extension.Kind `json:"kind"`

	// TypeID is the identifier that did not resolve.
	TypeID string `json:"typeId"`

	// Reason distinguishes an unknown identifier from one whose
	// extension is present but failed.
	Reason string `json:"reason"`

	// Extension is the failed extension's ID when Reason attributes
	// the miss to it.
	Extension string `json:"extension,omitempty"`

	// Detail is the failed extension's load failure reason, if known.
	Detail string `json:"detail,omitempty"`

	// Known lists the identifiers currently registered for Kind, so
	// the placeholder can offer what would resolve.
	Known []string `json:"known,omitempty"`
}

// States exposes per-extension load outcomes to the resolver. The
// loader satisfies it.
type States interface {
	States() map[string]extension.LoadState
}

// Resolver resolves type identifiers against a registry set, consulting
// the manifest store and load states to explain misses.
type Resolver struct {
	registries *registry.Set
	store      *manifest.Store
	states     States

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	events  *telemetry.EventPublisher
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(l *telemetry.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics sets the resolver's metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithEvents sets the resolver's event publisher.
func WithEvents(e *telemetry.EventPublisher) Option {
	return func(r *Resolver) { r.events = e }
}

// New creates a resolver. store and states may be nil; misses are then
// always reported as not registered.
func New(registries *registry.Set, store *manifest.Store, states States, opts ...Option) *Resolver {
	r := &Resolver{
		registries: registries,
		store:      store,
		states:     states,
		logger:     telemetry.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up a type identifier in the registry for kind. On a
// hit the entry is returned and the fallback is nil; on a miss the
// entry is zero and the fallback explains why.
func (r *Resolver) Resolve(kind extension.Kind, typeID string) (registry.Entry, *Fallback) {
	reg, err := r.registries.ByKind(kind)
	if err != nil {
		return registry.Entry{}, r.miss(kind, typeID, ReasonNotRegistered, "", "")
	}

	if e, ok := reg.Get(typeID); ok {
		if r.metrics != nil {
			r.metrics.RecordResolution(string(kind))
		}
		return e, nil
	}

	if extID, detail, ok := r.failedDeclarer(kind, typeID); ok {
		return registry.Entry{}, r.miss(kind, typeID, ReasonExtensionFailed, extID, detail)
	}
	return registry.Entry{}, r.miss(kind, typeID, ReasonNotRegistered, "", "")
}

// Page resolves a page type identifier.
func (r *Resolver) Page(typeID string) (registry.Entry, *Fallback) {
	return r.Resolve(extension.KindPage, typeID)
}

// Panel resolves a panel type identifier.
func (r *Resolver) Panel(typeID string) (registry.Entry, *Fallback) {
	return r.Resolve(extension.KindPanel, typeID)
}

// Layout resolves a layout type identifier.
func (r *Resolver) Layout(typeID string) (registry.Entry, *Fallback) {
	return r.Resolve(extension.KindLayout, typeID)
}

// failedDeclarer finds a discovered extension that declares the missing
// identifier in its manifest and failed to load. Declarers without load
// state, such as an explicitly unloaded extension, do not count: their
// components are simply not registered.
func (r *Resolver) failedDeclarer(kind extension.Kind, typeID string) (string, string, bool) {
	if r.store == nil || r.states == nil {
		return "", "", false
	}

	states := r.states.States()
	for _, d := range r.store.All() {
		if !d.DeclaresComponent(kind, typeID) {
			continue
		}
		if state, ok := states[d.ID]; ok && state.Phase == extension.LoadFailed {
			return d.ID, state.Reason, true
		}
	}
	return "", "", false
}

func (r *Resolver) miss(kind extension.Kind, typeID, reason, extID, detail string) *Fallback {
	r.logger.WithTypeID(string(kind), typeID).
		WithField("reason", reason).
		Debug("Type identifier did not resolve")
	if r.metrics != nil {
		r.metrics.RecordResolutionMiss(string(kind), reason)
		r.metrics.RecordError(string(extension.ErrorClassResolution))
	}
	if r.events != nil {
		r.events.PublishResolutionMiss(string(kind), typeID, reason)
	}
	return &Fallback{
		Kind:      kind,
		TypeID:    typeID,
		Reason:    reason,
		Extension: extID,
		Detail:    detail,
		Known:     r.registries.KnownIDs(kind),
	}
}

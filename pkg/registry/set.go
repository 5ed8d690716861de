package registry

import (
	"fmt"

	"github.com/modulaur/modulaur/pkg/extension"
)

// Set groups the three type registries and provides the cross-registry
// operations the loader needs: committing every unit of one descriptor
// atomically and removing every entry attributed to one extension.
type Set struct {
	page   *Registry
	panel  *Registry
	layout *Registry
}

// NewSet creates a set with one empty registry per kind.
func NewSet(opts ...Option) *Set {
	return &Set{
		page:   New(extension.KindPage, opts...),
		panel:  New(extension.KindPanel, opts...),
		layout: New(extension.KindLayout, opts...),
	}
}

// Page returns the page type registry.
func (s *Set) Page() *Registry { return s.page }

// Panel returns the panel type registry.
func (s *Set) Panel() *Registry { return s.panel }

// Layout returns the layout template registry.
func (s *Set) Layout() *Registry { return s.layout }

// ByKind returns the registry for a kind.
func (s *Set) ByKind(kind extension.Kind) (*Registry, error) {
	switch kind {
	case extension.KindPage:
		return s.page, nil
	case extension.KindPanel:
		return s.panel, nil
	case extension.KindLayout:
		return s.layout, nil
	}
	return nil, extension.NewConflictError(
		fmt.Sprintf("no registry for kind %q", kind), nil,
	).WithCode(extension.ErrCodeUnknownKind)
}

// Commit registers a batch of entries, all attributed to one source.
// The batch is validated before anything is applied: an entry with an
// unknown kind or empty ID rejects the whole batch and the registries
// are untouched. Locks are taken in a fixed order across registries so
// readers observe either none or all of the batch.
func (s *Set) Commit(source string, entries []Entry) error {
	for i := range entries {
		if entries[i].ID == "" {
			return extension.NewConflictError("entry with empty id", nil).
				WithExtension(source).WithCode(extension.ErrCodeBadUnit)
		}
		if !entries[i].Kind.Valid() {
			return extension.NewConflictError(
				fmt.Sprintf("entry %q has unknown kind %q", entries[i].ID, entries[i].Kind), nil,
			).WithExtension(source).WithCode(extension.ErrCodeUnknownKind)
		}
		entries[i].Source = source
	}

	// Fixed lock order: page, panel, layout.
	s.page.mu.Lock()
	s.panel.mu.Lock()
	s.layout.mu.Lock()

	var overrides []overridePair
	for _, e := range entries {
		r := s.mustByKind(e.Kind)
		if prior, existed := r.entries[e.ID]; existed {
			overrides = append(overrides, overridePair{registry: r, prior: prior, next: e})
		}
		r.entries[e.ID] = e
	}

	sizes := map[*Registry]int{
		s.page:   len(s.page.entries),
		s.panel:  len(s.panel.entries),
		s.layout: len(s.layout.entries),
	}

	s.layout.mu.Unlock()
	s.panel.mu.Unlock()
	s.page.mu.Unlock()

	for _, o := range overrides {
		o.registry.logOverride(o.prior, o.next)
	}
	for r, size := range sizes {
		if r.metrics != nil {
			r.metrics.SetRegistryEntries(string(r.kind), float64(size))
		}
	}
	return nil
}

type overridePair struct {
	registry *Registry
	prior    Entry
	next     Entry
}

// UnregisterSource removes every entry attributed to one extension from
// all registries and returns the number of removed entries.
func (s *Set) UnregisterSource(source string) int {
	removed := 0
	for _, r := range s.registries() {
		removed += r.unregisterSource(source)
	}
	return removed
}

// KnownIDs returns the registered identifiers for a kind, sorted. An
// unknown kind yields an empty list.
func (s *Set) KnownIDs(kind extension.Kind) []string {
	r, err := s.ByKind(kind)
	if err != nil {
		return nil
	}
	return r.IDs()
}

// Reset clears every registry back to empty. Used by tests and by a
// full reload before builtins are reseeded.
func (s *Set) Reset() {
	for _, r := range s.registries() {
		for _, id := range r.IDs() {
			r.Unregister(id)
		}
	}
}

func (s *Set) registries() []*Registry {
	return []*Registry{s.page, s.panel, s.layout}
}

// mustByKind resolves a kind already validated by Commit.
func (s *Set) mustByKind(kind extension.Kind) *Registry {
	switch kind {
	case extension.KindPage:
		return s.page
	case extension.KindPanel:
		return s.panel
	default:
		return s.layout
	}
}

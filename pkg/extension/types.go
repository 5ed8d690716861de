// Package extension provides the core types for the Modulaur extension
// subsystem: manifest descriptors produced by directory scans, the kinds
// of renderable units an extension may export, and the per-extension load
// state machine driven by the loader.
package extension

import (
	"time"
)

// Kind identifies which type registry a renderable unit belongs to.
type Kind string

const (
	// KindPage is a full page type rendered at a route.
	KindPage Kind = "page"

	// KindPanel is a dashboard panel type placed on a grid.
	KindPanel Kind = "panel"

	// KindLayout is a layout template arranging panels on a page.
	KindLayout Kind = "layout"
)

// Kinds lists every registry kind in deterministic order.
func Kinds() []Kind {
	return []Kind{KindPage, KindPanel, KindLayout}
}

// Valid reports whether k names a known registry kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPage, KindPanel, KindLayout:
		return true
	}
	return false
}

// ManifestType classifies what an extension package provides as a whole.
type ManifestType string

const (
	// ManifestTypePanel marks an extension that contributes panel types.
	ManifestTypePanel ManifestType = "panel"

	// ManifestTypePage marks an extension that contributes page types.
	ManifestTypePage ManifestType = "page"

	// ManifestTypeAdapter marks an extension that contributes a data
	// adapter and may register no renderable units at all.
	ManifestTypeAdapter ManifestType = "adapter"
)

// Valid reports whether t is a recognized manifest type.
func (t ManifestType) Valid() bool {
	switch t {
	case ManifestTypePanel, ManifestTypePage, ManifestTypeAdapter:
		return true
	}
	return false
}

// ComponentDecl is a component an extension declares in its manifest.
// Declarations are advisory: the authoritative set of registered units is
// whatever the extension's code yields through the registration contract.
// The resolver uses declarations to attribute a missing type identifier
// to an extension that failed to load.
type ComponentDecl struct {
	// ID is the type identifier the component will register under.
	ID string `json:"id"`

	// Kind routes the component to a type registry.
	Kind Kind `json:"kind"`

	// DisplayName is the human-readable component name.
	DisplayName string `json:"displayName,omitempty"`

	// Description explains what the component renders.
	Description string `json:"description,omitempty"`

	// Category groups components in pickers (e.g. "productivity").
	Category string `json:"category,omitempty"`
}

// Descriptor is the validated, in-memory representation of an extension's
// manifest.json. Descriptors are immutable: a rescan replaces the whole
// snapshot, it never patches descriptors in place.
type Descriptor struct {
	// ID is the unique kebab-case extension identifier.
	ID string `json:"id"`

	// Name is the human-readable extension name.
	Name string `json:"name"`

	// Version is the extension's semantic version.
	Version string `json:"version"`

	// Type classifies the extension package.
	Type ManifestType `json:"type"`

	// Entry is the code bundle path, relative to Dir.
	Entry string `json:"entry"`

	// CSS is an optional stylesheet path, relative to Dir.
	CSS string `json:"css,omitempty"`

	// Description is an optional summary shown in the plugin list.
	Description string `json:"description,omitempty"`

	// Author is the optional extension author.
	Author string `json:"author,omitempty"`

	// Homepage is an optional project URL.
	Homepage string `json:"homepage,omitempty"`

	// Icon is an optional icon name or path.
	Icon string `json:"icon,omitempty"`

	// Tags are optional free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Capabilities the extension's code claims to use.
	Capabilities []string `json:"capabilities,omitempty"`

	// Permissions the extension requests. Recorded and surfaced only;
	// this subsystem does not enforce a permission model.
	Permissions []string `json:"permissions,omitempty"`

	// Components declared by the manifest.
	Components []ComponentDecl `json:"components,omitempty"`

	// Dir is the extension directory the manifest was read from.
	Dir string `json:"dir"`

	// Root is the configured root directory that supplied Dir.
	Root string `json:"root"`
}

// DeclaresComponent reports whether the descriptor declares a component
// with the given kind and type identifier.
func (d *Descriptor) DeclaresComponent(kind Kind, id string) bool {
	for _, c := range d.Components {
		if c.Kind == kind && c.ID == id {
			return true
		}
	}
	return false
}

// LoadPhase is the lifecycle phase of a single extension.
type LoadPhase string

const (
	// LoadPending means a load is queued or in progress.
	LoadPending LoadPhase = "pending"

	// LoadLoaded means the code executed and every yielded unit was
	// registered.
	LoadLoaded LoadPhase = "loaded"

	// LoadFailed means fetch, execution, or registration failed; the
	// reason is recorded and no unit from the extension is registered.
	LoadFailed LoadPhase = "failed"
)

// LoadState is the per-extension outcome of the loader. Loaded and
// failed are terminal until an explicit reload re-enters pending for
// that extension only.
type LoadState struct {
	// Phase is the current lifecycle phase.
	Phase LoadPhase `json:"phase"`

	// Reason is the failure reason when Phase is failed.
	Reason string `json:"reason,omitempty"`

	// Units is the number of registered units when Phase is loaded.
	Units int `json:"units"`

	// UpdatedAt is when the phase last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

package host

import (
	"context"
	"encoding/json"

	"github.com/modulaur/modulaur/pkg/fieldschema"
	"github.com/modulaur/modulaur/pkg/registry"
	"github.com/modulaur/modulaur/pkg/resolve"
	"github.com/modulaur/modulaur/pkg/stores"
)

// PageView is a fully resolved page ready for the rendering surface.
// Every stored panel appears exactly once, either resolved or as a
// fallback; a dangling reference never removes a panel from the view.
type PageView struct {
	Page   stores.Page `json:"page"`
	Layout LayoutView  `json:"layout"`
	Panels []PanelView `json:"panels"`
}

// LayoutView is the page's resolved layout template.
type LayoutView struct {
	Entry    *registry.Entry   `json:"entry,omitempty"`
	Fallback *resolve.Fallback `json:"fallback,omitempty"`
}

// PanelView is one panel instance with its type resolved and its
// stored configuration rendered against the type's config schema.
type PanelView struct {
	Panel    stores.Panel         `json:"panel"`
	Entry    *registry.Entry      `json:"entry,omitempty"`
	Fallback *resolve.Fallback    `json:"fallback,omitempty"`
	Controls []fieldschema.Control `json:"controls,omitempty"`
}

// RenderPage loads a page and its panels from the store and resolves
// every type reference.
func (s *Service) RenderPage(ctx context.Context, pageID string) (*PageView, error) {
	page, err := s.pages.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	return s.renderPage(ctx, page)
}

// RenderPageByRoute is RenderPage keyed by the page's route.
func (s *Service) RenderPageByRoute(ctx context.Context, route string) (*PageView, error) {
	page, err := s.pages.GetPageByRoute(ctx, route)
	if err != nil {
		return nil, err
	}
	return s.renderPage(ctx, page)
}

func (s *Service) renderPage(ctx context.Context, page *stores.Page) (*PageView, error) {
	view := &PageView{Page: *page}

	if entry, fb := s.resolver.Layout(page.LayoutID); fb != nil {
		view.Layout = LayoutView{Fallback: fb}
	} else {
		view.Layout = LayoutView{Entry: &entry}
	}

	panels, err := s.pages.ListPanels(ctx, page.ID)
	if err != nil {
		return nil, err
	}

	view.Panels = make([]PanelView, 0, len(panels))
	for _, p := range panels {
		view.Panels = append(view.Panels, s.renderPanel(*p))
	}
	return view, nil
}

func (s *Service) renderPanel(p stores.Panel) PanelView {
	entry, fb := s.resolver.Panel(p.TypeID)
	if fb != nil {
		return PanelView{Panel: p, Fallback: fb}
	}

	view := PanelView{Panel: p, Entry: &entry}
	if len(entry.ConfigSchema) > 0 {
		var current map[string]any
		if p.Config != "" {
			// Stored config is freeform JSON; a corrupt blob renders
			// the schema's defaults.
			_ = json.Unmarshal([]byte(p.Config), &current)
		}
		view.Controls = fieldschema.RenderAll(entry.ConfigSchema, current)
	}
	return view
}

package registry

import (
	"github.com/modulaur/modulaur/pkg/extension"
	"github.com/modulaur/modulaur/pkg/fieldschema"
)

// SeedBuiltins registers the host's built-in page, panel, and layout
// types. Built-ins are registered before any extension loads, giving
// every registry a deterministic base; an extension that registers the
// same identifier intentionally replaces the built-in.
func SeedBuiltins(set *Set) {
	for _, e := range builtinEntries() {
		r, err := set.ByKind(e.Kind)
		if err != nil {
			continue
		}
		r.Register(e)
	}
}

func builtinEntries() []Entry {
	return []Entry{
		// Pages
		{
			ID:          "dashboard",
			Kind:        extension.KindPage,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "DashboardPage"},
			Source:      SourceBuiltin,
			DisplayName: "Dashboard",
			Description: "Panel grid with drag-and-drop layout",
			Icon:        "layout-grid",
			ConfigSchema: []fieldschema.Field{
				{
					ID: "layout", Type: fieldschema.FieldSelect, Label: "Layout template",
					Default: "grid",
					Options: []fieldschema.Option{
						{Value: "grid", Label: "Grid"},
						{Value: "columns", Label: "Columns"},
						{Value: "single", Label: "Single panel"},
					},
				},
				{
					ID: "columns", Type: fieldschema.FieldRange, Label: "Columns",
					Default:    12.0,
					Validation: &fieldschema.Validation{Min: f(1), Max: f(24)},
				},
			},
			DefaultConfig: map[string]any{"layout": "grid", "columns": 12.0},
		},
		{
			ID:          "settings",
			Kind:        extension.KindPage,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "SettingsPage"},
			Source:      SourceBuiltin,
			DisplayName: "Settings",
			Description: "Host and extension settings",
			Icon:        "settings",
		},

		// Panels
		{
			ID:          "notes",
			Kind:        extension.KindPanel,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "NotesPanel"},
			Source:      SourceBuiltin,
			DisplayName: "Notes",
			Description: "Markdown note-taking panel",
			Icon:        "notebook",
			Category:    "productivity",
			ConfigSchema: []fieldschema.Field{
				{ID: "title", Type: fieldschema.FieldText, Label: "Title", Placeholder: "Untitled note"},
				{ID: "content", Type: fieldschema.FieldTextarea, Label: "Content", Rows: 12},
				{
					ID: "accent", Type: fieldschema.FieldColor, Label: "Accent color",
					Default: "#4f46e5",
				},
			},
			DefaultConfig: map[string]any{"accent": "#4f46e5"},
		},
		{
			ID:          "tracker",
			Kind:        extension.KindPanel,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "TrackerPanel"},
			Source:      SourceBuiltin,
			DisplayName: "Time Tracker",
			Description: "Task timers with daily totals",
			Icon:        "timer",
			Category:    "productivity",
			ConfigSchema: []fieldschema.Field{
				{ID: "project", Type: fieldschema.FieldText, Label: "Project", Required: true},
				{
					ID: "rounding", Type: fieldschema.FieldNumber, Label: "Round to minutes",
					Default:    5.0,
					Validation: &fieldschema.Validation{Min: f(1), Max: f(60)},
				},
				{ID: "showIdle", Type: fieldschema.FieldCheckbox, Label: "Show idle time", Default: false},
			},
			DefaultConfig: map[string]any{"rounding": 5.0, "showIdle": false},
		},
		{
			ID:          "snippets",
			Kind:        extension.KindPanel,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "SnippetsPanel"},
			Source:      SourceBuiltin,
			DisplayName: "Snippets",
			Description: "Searchable code snippet storage",
			Icon:        "code",
			Category:    "development",
			ConfigSchema: []fieldschema.Field{
				{
					ID: "language", Type: fieldschema.FieldSelect, Label: "Default language",
					Default: "go",
					Options: []fieldschema.Option{
						{Value: "go", Label: "Go"},
						{Value: "rust", Label: "Rust"},
						{Value: "python", Label: "Python"},
						{Value: "shell", Label: "Shell"},
					},
				},
				{ID: "wrap", Type: fieldschema.FieldCheckbox, Label: "Wrap long lines", Default: true},
			},
			DefaultConfig: map[string]any{"language": "go", "wrap": true},
		},
		{
			ID:          "converter",
			Kind:        extension.KindPanel,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "ConverterPanel"},
			Source:      SourceBuiltin,
			DisplayName: "Text Converter",
			Description: "Case, encoding, and format conversions",
			Icon:        "replace",
			Category:    "utilities",
			ConfigSchema: []fieldschema.Field{
				{
					ID: "mode", Type: fieldschema.FieldSelect, Label: "Conversion",
					Default: "base64",
					Options: []fieldschema.Option{
						{Value: "base64", Label: "Base64"},
						{Value: "url", Label: "URL encode"},
						{Value: "case", Label: "Case"},
						{Value: "json", Label: "JSON pretty-print"},
					},
				},
			},
			DefaultConfig: map[string]any{"mode": "base64"},
		},

		// Layout templates
		{
			ID:          "grid",
			Kind:        extension.KindLayout,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "GridLayout"},
			Source:      SourceBuiltin,
			DisplayName: "Grid",
			Description: "Free-form panel grid",
		},
		{
			ID:          "columns",
			Kind:        extension.KindLayout,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "ColumnsLayout"},
			Source:      SourceBuiltin,
			DisplayName: "Columns",
			Description: "Fixed column stacks",
		},
		{
			ID:          "single",
			Kind:        extension.KindLayout,
			Ref:         ComponentRef{Module: SourceBuiltin, Export: "SingleLayout"},
			Source:      SourceBuiltin,
			DisplayName: "Single",
			Description: "One maximized panel",
		},
	}
}

func f(v float64) *float64 { return &v }

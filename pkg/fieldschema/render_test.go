package fieldschema

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	t.Run("current value wins over default", func(t *testing.T) {
		f := Field{ID: "title", Type: FieldText, Label: "Title", Default: "Untitled"}
		ctl := Render(f, "My Notes")
		if ctl.Kind != ControlText {
			t.Errorf("Kind = %s", ctl.Kind)
		}
		if ctl.Value != "My Notes" {
			t.Errorf("Value = %v", ctl.Value)
		}
	})

	t.Run("nil current falls back to default", func(t *testing.T) {
		f := Field{ID: "title", Type: FieldText, Default: "Untitled"}
		ctl := Render(f, nil)
		if ctl.Value != "Untitled" {
			t.Errorf("Value = %v, want default", ctl.Value)
		}
	})

	t.Run("select carries options", func(t *testing.T) {
		f := Field{
			ID: "mode", Type: FieldSelect,
			Options: []Option{{Value: "a", Label: "A"}, {Value: "b", Label: "B"}},
		}
		ctl := Render(f, nil)
		if ctl.Kind != ControlSelect || len(ctl.Options) != 2 {
			t.Errorf("ctl = %+v", ctl)
		}
	})

	t.Run("range carries bounds", func(t *testing.T) {
		f := Field{
			ID: "cols", Type: FieldRange,
			Validation: &Validation{Min: ptr(1.0), Max: ptr(24.0)},
		}
		ctl := Render(f, nil)
		if ctl.Min == nil || *ctl.Min != 1 || ctl.Max == nil || *ctl.Max != 24 {
			t.Errorf("bounds = %v..%v", ctl.Min, ctl.Max)
		}
	})

	t.Run("textarea carries rows", func(t *testing.T) {
		f := Field{ID: "content", Type: FieldTextarea, Rows: 12}
		if ctl := Render(f, nil); ctl.Rows != 12 {
			t.Errorf("Rows = %d", ctl.Rows)
		}
	})

	t.Run("unknown type renders visible placeholder", func(t *testing.T) {
		f := Field{ID: "odd", Type: FieldType("slider3d")}
		ctl := Render(f, nil)
		if ctl.Kind != ControlUnknown {
			t.Fatalf("Kind = %s, want unknown placeholder", ctl.Kind)
		}
		if !strings.Contains(ctl.Message, "slider3d") || !strings.Contains(ctl.Message, "odd") {
			t.Errorf("Message = %q", ctl.Message)
		}
	})
}

func TestRenderAll(t *testing.T) {
	fields := []Field{
		{ID: "title", Type: FieldText, Default: "Untitled"},
		{ID: "weird", Type: FieldType("nope")},
		{ID: "wrap", Type: FieldCheckbox, Default: true},
	}
	config := map[string]any{"title": "Set", "wrap": false}

	controls := RenderAll(fields, config)
	if len(controls) != 3 {
		t.Fatalf("every declared field must produce a control, got %d", len(controls))
	}
	if controls[0].Value != "Set" {
		t.Errorf("controls[0].Value = %v", controls[0].Value)
	}
	if controls[1].Kind != ControlUnknown {
		t.Errorf("controls[1].Kind = %s", controls[1].Kind)
	}
	if controls[2].Value != false {
		t.Errorf("controls[2].Value = %v", controls[2].Value)
	}
}

func ptr(v float64) *float64 { return &v }

package fieldschema

import (
	"fmt"
)

// ControlKind identifies the input control a field renders to.
type ControlKind string

const (
	ControlText     ControlKind = "text"
	ControlTextarea ControlKind = "textarea"
	ControlSelect   ControlKind = "select"
	ControlNumber   ControlKind = "number"
	ControlCheckbox ControlKind = "checkbox"
	ControlColor    ControlKind = "color"
	ControlRange    ControlKind = "range"

	// ControlUnknown is the visible placeholder rendered for a field
	// whose declared type is not recognized. A missing control would
	// hide configuration the author intended to expose; a visible
	// error does not.
	ControlUnknown ControlKind = "unknown"
)

// Control is the renderable description of one input control. The host
// UI turns controls into concrete widgets; this package only decides
// what the widget is and what it carries.
type Control struct {
	// Kind selects the widget.
	Kind ControlKind `json:"kind"`

	// FieldID is the config key the control edits.
	FieldID string `json:"fieldId"`

	// Label is the display label.
	Label string `json:"label"`

	// Value is the current value, or the field default when unset.
	Value any `json:"value,omitempty"`

	// Required mirrors the field's required flag.
	Required bool `json:"required,omitempty"`

	// Placeholder is hint text for empty inputs.
	Placeholder string `json:"placeholder,omitempty"`

	// Help is the field's help text.
	Help string `json:"help,omitempty"`

	// Rows is the line count for textarea controls.
	Rows int `json:"rows,omitempty"`

	// Options are the choices for select controls.
	Options []Option `json:"options,omitempty"`

	// Min and Max bound number and range controls.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Message carries the placeholder text for unknown controls.
	Message string `json:"message,omitempty"`
}

// Render turns one field and its current value into a control. A nil
// current value falls back to the field default. Unrecognized field
// types yield a ControlUnknown placeholder, never nothing.
func Render(field Field, current any) Control {
	value := current
	if value == nil {
		value = field.Default
	}

	ctl := Control{
		FieldID:     field.ID,
		Label:       field.Label,
		Value:       value,
		Required:    field.Required,
		Placeholder: field.Placeholder,
		Help:        field.Help,
	}

	switch field.Type {
	case FieldText:
		ctl.Kind = ControlText
	case FieldTextarea:
		ctl.Kind = ControlTextarea
		ctl.Rows = field.Rows
	case FieldSelect:
		ctl.Kind = ControlSelect
		ctl.Options = field.Options
	case FieldNumber:
		ctl.Kind = ControlNumber
		if field.Validation != nil {
			ctl.Min = field.Validation.Min
			ctl.Max = field.Validation.Max
		}
	case FieldCheckbox:
		ctl.Kind = ControlCheckbox
	case FieldColor:
		ctl.Kind = ControlColor
	case FieldRange:
		ctl.Kind = ControlRange
		if field.Validation != nil {
			ctl.Min = field.Validation.Min
			ctl.Max = field.Validation.Max
		}
	default:
		ctl.Kind = ControlUnknown
		ctl.Message = fmt.Sprintf("unknown field type %q for field %q", field.Type, field.ID)
	}

	return ctl
}

// RenderAll renders a whole schema against a config object. Every
// declared field produces exactly one control, in schema order.
func RenderAll(fields []Field, config map[string]any) []Control {
	controls := make([]Control, 0, len(fields))
	for _, f := range fields {
		var current any
		if config != nil {
			current = config[f.ID]
		}
		controls = append(controls, Render(f, current))
	}
	return controls
}

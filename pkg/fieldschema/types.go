// Package fieldschema interprets the declarative field schema shared by
// page types, panel types, and extension settings. A schema is a flat
// list of typed fields; the package turns each field into an input
// control description and validates values against the field's
// constraints. It is independent of which registry supplied the schema.
package fieldschema

// FieldType enumerates the supported input field types.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldNumber   FieldType = "number"
	FieldCheckbox FieldType = "checkbox"
	FieldColor    FieldType = "color"
	FieldRange    FieldType = "range"
)

// Known reports whether t is a recognized field type. Unknown types are
// still rendered, as an explicit placeholder control, so a typo in an
// extension's schema surfaces instead of silently hiding the field.
func (t FieldType) Known() bool {
	switch t {
	case FieldText, FieldTextarea, FieldSelect, FieldNumber, FieldCheckbox, FieldColor, FieldRange:
		return true
	}
	return false
}

// Option is one selectable choice for a select field.
type Option struct {
	// Value is the stored value. String, number, and boolean values
	// are accepted, matching what manifests declare in JSON.
	Value any `json:"value"`

	// Label is the display label.
	Label string `json:"label"`
}

// Validation holds the optional constraints of a field. Checks run after
// the required check and type coercion.
type Validation struct {
	// Pattern is a regular expression a text value must match.
	Pattern string `json:"pattern,omitempty"`

	// Min is the inclusive lower bound for number and range values.
	Min *float64 `json:"min,omitempty"`

	// Max is the inclusive upper bound for number and range values.
	Max *float64 `json:"max,omitempty"`

	// MinLength is the minimum length for text values.
	MinLength *int `json:"minLength,omitempty"`

	// MaxLength is the maximum length for text values.
	MaxLength *int `json:"maxLength,omitempty"`
}

// Field is one entry of a config schema.
type Field struct {
	// ID is the config key the field edits.
	ID string `json:"id"`

	// Type selects the input control.
	Type FieldType `json:"type"`

	// Label is the field's display label.
	Label string `json:"label"`

	// Required marks the field as mandatory.
	Required bool `json:"required,omitempty"`

	// Placeholder is optional hint text for empty inputs.
	Placeholder string `json:"placeholder,omitempty"`

	// Help is an optional explanation shown next to the control.
	Help string `json:"help,omitempty"`

	// Rows is the visible line count for textarea fields.
	Rows int `json:"rows,omitempty"`

	// Default is the value used when the config has none.
	Default any `json:"default,omitempty"`

	// Options are the choices for select fields.
	Options []Option `json:"options,omitempty"`

	// Validation holds the field's constraints.
	Validation *Validation `json:"validation,omitempty"`
}

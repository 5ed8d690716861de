package fieldschema

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Validate checks a value against one field. The order is fixed:
// required check first, then type coercion, then pattern, range, and
// length checks. A nil error means the value is acceptable.
func Validate(field Field, value any) error {
	if isEmpty(value) {
		if field.Required {
			return fmt.Errorf("field %q is required", field.ID)
		}
		return nil
	}

	switch field.Type {
	case FieldText, FieldTextarea:
		s, err := coerceString(field, value)
		if err != nil {
			return err
		}
		return validateText(field, s)

	case FieldColor:
		s, err := coerceString(field, value)
		if err != nil {
			return err
		}
		if !colorPattern.MatchString(s) {
			return fmt.Errorf("field %q: %q is not a valid color value", field.ID, s)
		}
		return nil

	case FieldNumber, FieldRange:
		n, err := coerceNumber(field, value)
		if err != nil {
			return err
		}
		return validateRange(field, n)

	case FieldCheckbox:
		_, err := coerceBool(field, value)
		return err

	case FieldSelect:
		return validateSelect(field, value)

	default:
		// An unknown type cannot be validated; Render surfaces it as a
		// visible placeholder, so validation passes the value through.
		return nil
	}
}

// ValidateAll validates a config object against a schema and returns
// the first error per failing field, keyed by field ID.
func ValidateAll(fields []Field, config map[string]any) map[string]error {
	var errs map[string]error
	for _, f := range fields {
		var value any
		if config != nil {
			value = config[f.ID]
		}
		if err := Validate(f, value); err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[f.ID] = err
		}
	}
	return errs
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}

func coerceString(field Field, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected a string, got %T", field.ID, value)
	}
	return s, nil
}

func coerceNumber(field Field, value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("field %q: %q is not a number", field.ID, v.String())
		}
		return n, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("field %q: %q is not a number", field.ID, v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("field %q: expected a number, got %T", field.ID, value)
}

func coerceBool(field Field, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("field %q: %q is not a boolean", field.ID, v)
		}
		return b, nil
	}
	return false, fmt.Errorf("field %q: expected a boolean, got %T", field.ID, value)
}

func validateText(field Field, s string) error {
	v := field.Validation
	if v == nil {
		return nil
	}
	if v.Pattern != "" {
		re, err := regexp.Compile(v.Pattern)
		if err != nil {
			return fmt.Errorf("field %q: invalid pattern %q: %w", field.ID, v.Pattern, err)
		}
		if !re.MatchString(s) {
			return fmt.Errorf("field %q: value does not match pattern %q", field.ID, v.Pattern)
		}
	}
	if v.MinLength != nil && len(s) < *v.MinLength {
		return fmt.Errorf("field %q: value shorter than %d characters", field.ID, *v.MinLength)
	}
	if v.MaxLength != nil && len(s) > *v.MaxLength {
		return fmt.Errorf("field %q: value longer than %d characters", field.ID, *v.MaxLength)
	}
	return nil
}

func validateRange(field Field, n float64) error {
	v := field.Validation
	if v == nil {
		return nil
	}
	if v.Min != nil && n < *v.Min {
		return fmt.Errorf("field %q: %v is below minimum %v", field.ID, n, *v.Min)
	}
	if v.Max != nil && n > *v.Max {
		return fmt.Errorf("field %q: %v is above maximum %v", field.ID, n, *v.Max)
	}
	return nil
}

func validateSelect(field Field, value any) error {
	if len(field.Options) == 0 {
		return nil
	}
	for _, opt := range field.Options {
		if equalOptionValue(opt.Value, value) {
			return nil
		}
	}
	return fmt.Errorf("field %q: %v is not one of the allowed options", field.ID, value)
}

// equalOptionValue compares an option value with a submitted value,
// tolerating the int/float64 mismatch JSON decoding introduces.
func equalOptionValue(option, value any) bool {
	if option == value {
		return true
	}
	of, oerr := toFloat(option)
	vf, verr := toFloat(value)
	return oerr == nil && verr == nil && of == vf
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("not a number")
}

package fields

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayouts lists the accepted date inputs. Values are stored using the
// first layout.
var DateLayouts = []string{"2006-01-02", "2006-1-2"}

// Text is a free-form string input, optionally constrained by a pattern.
type Text struct{ base }

func (f Text) Render(value any) Widget {
	w := f.widget(value)
	if f.constraint.Pattern != nil {
		w.Attributes = map[string]string{"pattern": f.constraint.RawPattern}
	}
	return w
}

func (f Text) Validate(value any) string {
	if msg, ok := f.required(value); !ok {
		return msg
	}
	text, ok := value.(string)
	if !ok {
		return "Must be text."
	}
	if !f.matchesPattern(strings.TrimSpace(text)) {
		return "Invalid format."
	}
	return ""
}

func (f Text) Coerce(raw string) (any, error) {
	return blankToNil(raw), nil
}

// Date is a calendar date picked from a date picker.
type Date struct{ base }

func (f Date) Render(value any) Widget {
	w := f.widget(value)
	if normalized, err := NormalizeDate(value); err == nil {
		w.Display = normalized
	}
	w.Attributes = map[string]string{"format": "YYYY-MM-DD"}
	return w
}

func (f Date) Validate(value any) string {
	if msg, ok := f.required(value); !ok {
		return msg
	}
	if _, err := NormalizeDate(value); err != nil {
		return "Enter a valid date (YYYY-MM-DD)."
	}
	return ""
}

func (f Date) Coerce(raw string) (any, error) {
	if blankToNil(raw) == nil {
		return nil, nil
	}
	return NormalizeDate(raw)
}

// NormalizeDate parses string or time.Time values and returns the ISO date.
func NormalizeDate(value any) (string, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(DateLayouts[0]), nil
	case string:
		text := strings.TrimSpace(v)
		for _, layout := range DateLayouts {
			if parsed, err := time.Parse(layout, text); err == nil {
				return parsed.Format(DateLayouts[0]), nil
			}
		}
		return "", fmt.Errorf("fields: %q is not a date", v)
	default:
		return "", fmt.Errorf("fields: unsupported date value %T", value)
	}
}

// ZipCode is a masked postal code input validated against the field pattern.
type ZipCode struct{ base }

func (f ZipCode) Render(value any) Widget {
	w := f.widget(value)
	w.Attributes = map[string]string{
		"mask":      "99999-9999",
		"inputmode": "numeric",
	}
	if f.constraint.Pattern != nil {
		w.Attributes["pattern"] = f.constraint.RawPattern
	}
	return w
}

func (f ZipCode) Validate(value any) string {
	if msg, ok := f.required(value); !ok {
		return msg
	}
	text, ok := value.(string)
	if !ok || !f.matchesPattern(strings.TrimSpace(text)) {
		return "Enter a valid ZIP code."
	}
	return ""
}

func (f ZipCode) Coerce(raw string) (any, error) {
	return blankToNil(raw), nil
}

// IntegerRange is a numeric input bounded by the schema minimum and maximum.
type IntegerRange struct{ base }

func (f IntegerRange) Render(value any) Widget {
	w := f.widget(value)
	w.Attributes = map[string]string{"step": "1"}
	if f.constraint.Fractional {
		w.Attributes["step"] = "any"
	}
	if f.constraint.Minimum != nil {
		w.Attributes["min"] = formatNumber(*f.constraint.Minimum)
	}
	if f.constraint.Maximum != nil {
		w.Attributes["max"] = formatNumber(*f.constraint.Maximum)
	}
	return w
}

func (f IntegerRange) Validate(value any) string {
	if msg, ok := f.required(value); !ok {
		return msg
	}
	number, err := toFloat(value)
	if err != nil {
		return "Must be a number."
	}
	if !f.constraint.Fractional && number != math.Trunc(number) {
		return "Must be a whole number."
	}
	if f.constraint.Minimum != nil && number < *f.constraint.Minimum {
		return "Must be at least " + formatNumber(*f.constraint.Minimum) + "."
	}
	if f.constraint.Maximum != nil && number > *f.constraint.Maximum {
		return "Must be at most " + formatNumber(*f.constraint.Maximum) + "."
	}
	return ""
}

func (f IntegerRange) Coerce(raw string) (any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, nil
	}
	if f.constraint.Fractional {
		number, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("fields: %q is not a number", raw)
		}
		return number, nil
	}
	number, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fields: %q is not a whole number", raw)
	}
	return number, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		return 0, fmt.Errorf("fields: unsupported number %T", value)
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// Boolean is a yes/no toggle.
type Boolean struct{ base }

func (f Boolean) Render(value any) Widget {
	w := f.widget(value)
	current, err := toBool(value)
	known := err == nil
	w.Options = []Choice{
		{Label: "Yes", Value: "true", Selected: known && current},
		{Label: "No", Value: "false", Selected: known && !current},
	}
	return w
}

func (f Boolean) Validate(value any) string {
	if msg, ok := f.required(value); !ok {
		return msg
	}
	if _, err := toBool(value); err != nil {
		return "Choose yes or no."
	}
	return ""
}

func (f Boolean) Coerce(raw string) (any, error) {
	if blankToNil(raw) == nil {
		return nil, nil
	}
	return toBool(raw)
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "on":
			return true, nil
		case "false", "no", "n", "0", "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("fields: %v is not a yes/no value", value)
}

// Enum is a select over the schema's enumerated values.
type Enum struct{ base }

func (f Enum) Render(value any) Widget {
	w := f.widget(value)
	selected := ""
	if value != nil {
		selected = fmt.Sprint(value)
	}
	w.Options = make([]Choice, 0, len(f.constraint.Options))
	for _, option := range f.constraint.Options {
		w.Options = append(w.Options, Choice{
			Label:    option,
			Value:    option,
			Selected: option == selected,
		})
	}
	return w
}

func (f Enum) Validate(value any) string {
	if msg, ok := f.required(value); !ok {
		return msg
	}
	text := fmt.Sprint(value)
	for _, option := range f.constraint.Options {
		if option == text {
			return ""
		}
	}
	return "Choose one of the listed options."
}

func (f Enum) Coerce(raw string) (any, error) {
	return blankToNil(raw), nil
}

// Reference is an opaque record chosen through an external search box. Its
// value is an object carrying at least an "id".
type Reference struct{ base }

func (f Reference) Render(value any) Widget {
	w := f.widget(value)
	w.Display = referenceLabel(value)
	return w
}

func (f Reference) Validate(value any) string {
	if msg, ok := f.required(value); !ok {
		return msg
	}
	if referenceID(value) == "" {
		return "Select a record."
	}
	return ""
}

// Coerce accepts a JSON object or a bare identifier.
func (f Reference) Coerce(raw string) (any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, nil
	}
	if strings.HasPrefix(text, "{") {
		var record map[string]any
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("fields: invalid reference: %w", err)
		}
		if referenceID(record) == "" {
			return nil, errors.New("fields: reference requires an id")
		}
		return record, nil
	}
	return map[string]any{"id": text}, nil
}

func referenceID(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if id, ok := v["id"]; ok && id != nil {
			return strings.TrimSpace(fmt.Sprint(id))
		}
	case map[string]string:
		return strings.TrimSpace(v["id"])
	}
	return ""
}

func referenceLabel(value any) string {
	if record, ok := value.(map[string]any); ok {
		if name, ok := record["name"].(string); ok && strings.TrimSpace(name) != "" {
			return name
		}
	}
	return referenceID(value)
}

func blankToNil(raw string) any {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}
	return text
}

// Package fields turns schema properties into renderable, validating inputs.
// The set of field kinds is closed: Text, Date, ZipCode, IntegerRange,
// Boolean, Enum and Reference.
package fields

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/schema"
)

// MessageRequired is reported for required fields left empty.
const MessageRequired = "Required."

// Field is one schema property bound to a widget and its validation rules.
type Field interface {
	Name() string
	Kind() schema.Kind
	Property() schema.Property
	Constraint() schema.FieldConstraint
	// Render describes the input for value.
	Render(value any) Widget
	// Validate returns an inline error message, or "" when value is acceptable.
	Validate(value any) string
	// Coerce converts text input (HTML forms, terminals) into the record value.
	Coerce(raw string) (any, error)

	sealed()
}

// Widget is a renderer-neutral description of an input control.
type Widget struct {
	Name        string            `json:"name"`
	Control     string            `json:"control"`
	Label       string            `json:"label"`
	Description string            `json:"description,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	Value       any               `json:"value,omitempty"`
	Display     string            `json:"display"`
	Required    bool              `json:"required"`
	Nullable    bool              `json:"nullable"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Options     []Choice          `json:"options,omitempty"`
}

// Choice is an option offered by select and yes/no controls.
type Choice struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

type base struct {
	prop       schema.Property
	constraint schema.FieldConstraint
	control    string
}

func (b base) Name() string                       { return b.prop.Name }
func (b base) Kind() schema.Kind                  { return b.constraint.Kind }
func (b base) Property() schema.Property          { return b.prop }
func (b base) Constraint() schema.FieldConstraint { return b.constraint }
func (base) sealed()                              {}

func (b base) widget(value any) Widget {
	w := Widget{
		Name:        b.prop.Name,
		Control:     b.control,
		Label:       b.prop.Label(),
		Description: b.prop.Description,
		Value:       value,
		Required:    b.constraint.Required,
		Nullable:    b.constraint.Nullable,
	}
	if b.prop.Example != nil {
		w.Placeholder = fmt.Sprint(b.prop.Example)
	}
	if !IsEmpty(value) {
		w.Display = fmt.Sprint(value)
	}
	return w
}

// required applies the shared emptiness rule. ok is false when the caller
// should stop and report msg.
func (b base) required(value any) (msg string, ok bool) {
	if !IsEmpty(value) {
		return "", true
	}
	if b.constraint.Required {
		return MessageRequired, false
	}
	return "", false
}

func (b base) matchesPattern(text string) bool {
	if b.constraint.Pattern == nil {
		return true
	}
	return b.constraint.Pattern.MatchString(text)
}

// IsEmpty reports whether value counts as missing. false and 0 are values.
func IsEmpty(value any) bool {
	if value == nil {
		return true
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Package schema models the server-supplied field constraint maps that drive
// wizard forms. A Schema is an ordered, immutable mapping from field name to
// Property; FieldConstraint is the per-field rule set derived from it.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JSON Schema type names understood by the wizard.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
)

// Formats with dedicated widgets.
const (
	FormatDate = "date"
	FormatZip  = "zip"
)

// Property is the constraint descriptor attached to one field name.
type Property struct {
	Name           string   `json:"-"`
	Type           string   `json:"type,omitempty"`
	Format         string   `json:"format,omitempty"`
	Pattern        string   `json:"pattern,omitempty"`
	Minimum        *float64 `json:"minimum,omitempty"`
	Maximum        *float64 `json:"maximum,omitempty"`
	Nullable       bool     `json:"x-nullable,omitempty"`
	AlwaysRequired bool     `json:"x-always-required,omitempty"`
	Title          string   `json:"title,omitempty"`
	Description    string   `json:"description,omitempty"`
	Example        any      `json:"example,omitempty"`
	Enum           []any    `json:"enum,omitempty"`
	// Widget pins the control used to render the field ("x-widget").
	Widget string `json:"x-widget,omitempty"`
}

// Label returns the human title, falling back to the field name.
func (p Property) Label() string {
	if title := strings.TrimSpace(p.Title); title != "" {
		return title
	}
	return p.Name
}

// Schema is an ordered set of properties. The zero value is an empty schema.
type Schema struct {
	names []string
	props map[string]Property
}

// New builds a Schema from properties, preserving their order. Property names
// must be unique and non-empty.
func New(props ...Property) (Schema, error) {
	s := Schema{
		names: make([]string, 0, len(props)),
		props: make(map[string]Property, len(props)),
	}
	for _, prop := range props {
		name := strings.TrimSpace(prop.Name)
		if name == "" {
			return Schema{}, fmt.Errorf("schema: property name is required")
		}
		if _, exists := s.props[name]; exists {
			return Schema{}, fmt.Errorf("schema: duplicate property %q", name)
		}
		prop.Name = name
		s.names = append(s.names, name)
		s.props[name] = prop
	}
	return s, nil
}

// MustNew panics when New fails. Useful for static host configuration.
func MustNew(props ...Property) Schema {
	s, err := New(props...)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the field names in schema order.
func (s Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Len reports the number of properties.
func (s Schema) Len() int {
	return len(s.names)
}

// Lookup returns the property for name.
func (s Schema) Lookup(name string) (Property, bool) {
	prop, ok := s.props[name]
	return prop, ok
}

// Has reports whether name is a known field.
func (s Schema) Has(name string) bool {
	_, ok := s.props[name]
	return ok
}

// Filter returns a copy of values restricted to schema keys.
func (s Schema) Filter(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		if s.Has(key) {
			out[key] = value
		}
	}
	return out
}

// MarshalJSON writes the schema as an ordered property map.
func (s Schema) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for idx, name := range s.names {
		if idx > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.props[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses an ordered property map; see Parse.
func (s *Schema) UnmarshalJSON(raw []byte) error {
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the semantic field type derived from a Property.
type Kind string

const (
	KindText      Kind = "text"
	KindDate      Kind = "date"
	KindZip       Kind = "zip"
	KindInteger   Kind = "integer"
	KindBoolean   Kind = "boolean"
	KindEnum      Kind = "enum"
	KindReference Kind = "reference"
)

// DefaultZipPattern applies to zip fields that do not declare a pattern.
const DefaultZipPattern = `^(\d{5}([\-]\d{4})?)$`

// FieldConstraint holds the validation rules for one field. Required is
// independent of Nullable: a column may be nullable in storage yet mandatory
// for a given form.
type FieldConstraint struct {
	Name       string
	Kind       Kind
	Nullable   bool
	Required   bool
	Pattern    *regexp.Regexp
	RawPattern string
	// PatternErr is set when RawPattern failed to compile; the pattern rule is
	// then skipped.
	PatternErr error
	Minimum    *float64
	Maximum    *float64
	// Fractional allows non-integral numbers (type "number").
	Fractional bool
	Options    []string
}

// KindOf dispatches a property to its field kind.
func KindOf(prop Property) Kind {
	switch {
	case len(prop.Enum) > 0:
		return KindEnum
	case prop.Type == TypeString && prop.Format == FormatDate:
		return KindDate
	case prop.Type == TypeString && prop.Format == FormatZip:
		return KindZip
	case prop.Type == TypeInteger || prop.Type == TypeNumber:
		return KindInteger
	case prop.Type == TypeBoolean:
		return KindBoolean
	case prop.Type == TypeObject:
		return KindReference
	default:
		return KindText
	}
}

// Constraint derives the FieldConstraint for prop. requiredByPage marks the
// field mandatory even when the schema does not flag it always-required.
func (p Property) Constraint(requiredByPage bool) FieldConstraint {
	c := FieldConstraint{
		Name:       p.Name,
		Kind:       KindOf(p),
		Nullable:   p.Nullable,
		Required:   p.AlwaysRequired || requiredByPage,
		Minimum:    p.Minimum,
		Maximum:    p.Maximum,
		Fractional: p.Type == TypeNumber,
		RawPattern: p.Pattern,
	}
	if c.Kind == KindZip && strings.TrimSpace(c.RawPattern) == "" {
		c.RawPattern = DefaultZipPattern
	}
	if c.RawPattern != "" {
		re, err := regexp.Compile(c.RawPattern)
		if err != nil {
			c.PatternErr = fmt.Errorf("schema: field %q: invalid pattern %q: %w", p.Name, c.RawPattern, err)
		} else {
			c.Pattern = re
		}
	}
	if len(p.Enum) > 0 {
		c.Options = make([]string, 0, len(p.Enum))
		for _, value := range p.Enum {
			c.Options = append(c.Options, fmt.Sprint(value))
		}
	}
	return c
}

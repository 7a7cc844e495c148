package fields

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-formwizard/pkg/schema"
)

// ErrUnknownField is returned when a page references a name the schema does
// not define.
var ErrUnknownField = errors.New("fields: unknown field")

// Option customises a Builder.
type Option func(*Builder)

// WithRegistry replaces the default control registry.
func WithRegistry(reg *Registry) Option {
	return func(b *Builder) {
		if reg != nil {
			b.registry = reg
		}
	}
}

// WithLogger routes configuration warnings to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder produces Fields for names of a single schema.
type Builder struct {
	schema   schema.Schema
	registry *Registry
	logger   *slog.Logger
}

// NewBuilder returns a Builder bound to s.
func NewBuilder(s schema.Schema, options ...Option) *Builder {
	b := &Builder{
		schema:   s,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build returns the Field for name in s. It is shorthand for
// NewBuilder(s, options...).Build(name, false).
func Build(name string, s schema.Schema, options ...Option) (Field, error) {
	return NewBuilder(s, options...).Build(name, false)
}

// Schema returns the schema the builder reads from.
func (b *Builder) Schema() schema.Schema {
	return b.schema
}

// Build returns the Field for name. required marks the field mandatory on top
// of the schema's x-always-required flag. A malformed pattern is logged and
// the field is built without pattern validation.
func (b *Builder) Build(name string, required bool) (Field, error) {
	prop, ok := b.schema.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	constraint := prop.Constraint(required)
	if constraint.PatternErr != nil {
		b.logger.Warn("fields: ignoring malformed pattern", "field", name, "error", constraint.PatternErr)
	}

	control, ok := b.registry.Resolve(prop)
	if !ok {
		control = ControlInput
	}
	core := base{prop: prop, constraint: constraint, control: control}

	switch constraint.Kind {
	case schema.KindDate:
		return Date{core}, nil
	case schema.KindZip:
		return ZipCode{core}, nil
	case schema.KindInteger:
		return IntegerRange{core}, nil
	case schema.KindBoolean:
		return Boolean{core}, nil
	case schema.KindEnum:
		return Enum{core}, nil
	case schema.KindReference:
		return Reference{core}, nil
	default:
		return Text{core}, nil
	}
}

// BuildAll builds every name, logging and omitting unknown fields.
// isRequired may be nil.
func (b *Builder) BuildAll(names []string, isRequired func(string) bool) []Field {
	out := make([]Field, 0, len(names))
	for _, name := range names {
		required := isRequired != nil && isRequired(name)
		field, err := b.Build(name, required)
		if err != nil {
			b.logger.Error("fields: configuration error, field omitted", "field", name, "error", err)
			continue
		}
		out = append(out, field)
	}
	return out
}

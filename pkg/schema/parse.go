package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMalformedEntry marks a schema entry that could not be decoded. Parse
// skips such entries instead of failing the whole schema.
var ErrMalformedEntry = errors.New("schema: malformed entry")

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	logger *slog.Logger
	issues *[]error
}

// WithLogger routes configuration warnings to logger.
func WithLogger(logger *slog.Logger) ParseOption {
	return func(cfg *parseConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// CollectIssues appends every skipped-entry error to dest.
func CollectIssues(dest *[]error) ParseOption {
	return func(cfg *parseConfig) {
		cfg.issues = dest
	}
}

type rawProperty struct {
	Type           yaml.Node `yaml:"type"`
	Format         string    `yaml:"format"`
	Pattern        string    `yaml:"pattern"`
	Minimum        *float64  `yaml:"minimum"`
	Maximum        *float64  `yaml:"maximum"`
	Nullable       *bool     `yaml:"nullable"`
	XNullable      *bool     `yaml:"x-nullable"`
	AlwaysRequired bool      `yaml:"x-always-required"`
	Title          string    `yaml:"title"`
	Description    string    `yaml:"description"`
	Example        yaml.Node `yaml:"example"`
	Enum           []any     `yaml:"enum"`
	Widget         string    `yaml:"x-widget"`
}

// definitionKeywords are the top-level keys a definition object may carry
// next to "properties".
var definitionKeywords = map[string]struct{}{
	"type":                 {},
	"properties":           {},
	"required":             {},
	"title":                {},
	"description":          {},
	"additionalProperties": {},
	"example":              {},
	"discriminator":        {},
	"nullable":             {},
	"$schema":              {},
	"$id":                  {},
	"id":                   {},
}

// Parse decodes a JSON or YAML schema payload. Both a bare property map and
// a definition object carrying a "properties" member are accepted. Key order
// is preserved. Entries that are not valid property objects are logged and
// skipped; duplicate keys are an error.
func Parse(raw []byte, options ...ParseOption) (Schema, error) {
	cfg := parseConfig{logger: slog.Default()}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	root, err := decodeRoot(raw)
	if err != nil {
		return Schema{}, fmt.Errorf("schema: decode: %w", err)
	}
	keys, values, err := mappingEntries(root)
	if err != nil {
		return Schema{}, fmt.Errorf("schema: decode: %w", err)
	}
	if isDefinition(keys, values) {
		keys, values, err = mappingEntries(values["properties"])
		if err != nil {
			return Schema{}, fmt.Errorf("schema: decode properties: %w", err)
		}
	}

	props := make([]Property, 0, len(keys))
	for _, key := range keys {
		prop, err := decodeProperty(key, values[key])
		if err != nil {
			cfg.logger.Warn("schema: skipping malformed entry", "field", key, "error", err)
			if cfg.issues != nil {
				*cfg.issues = append(*cfg.issues, err)
			}
			continue
		}
		props = append(props, prop)
	}
	return New(props...)
}

// isDefinition reports whether an object is a schema definition rather than
// a property map that happens to contain a field named "properties". A
// definition either declares type "object" or carries only definition
// keywords and extensions.
func isDefinition(keys []string, values map[string]*yaml.Node) bool {
	props, ok := values["properties"]
	if !ok || props.Kind != yaml.MappingNode {
		return false
	}
	if typ, ok := values["type"]; ok {
		return typ.Kind == yaml.ScalarNode && typ.Value == TypeObject
	}
	for _, key := range keys {
		if _, known := definitionKeywords[key]; !known && !strings.HasPrefix(key, "x-") {
			return false
		}
	}
	return true
}

func decodeProperty(name string, node *yaml.Node) (Property, error) {
	if node == nil || node.Kind != yaml.MappingNode {
		return Property{}, fmt.Errorf("%w: %q is not an object", ErrMalformedEntry, name)
	}
	var rp rawProperty
	if err := node.Decode(&rp); err != nil {
		return Property{}, fmt.Errorf("%w: %q: %v", ErrMalformedEntry, name, err)
	}

	typ, nullableType, err := decodeType(&rp.Type)
	if err != nil {
		return Property{}, fmt.Errorf("%w: %q: %v", ErrMalformedEntry, name, err)
	}
	example, err := scalarValue(&rp.Example)
	if err != nil {
		return Property{}, fmt.Errorf("%w: %q: example: %v", ErrMalformedEntry, name, err)
	}

	prop := Property{
		Name:           name,
		Type:           typ,
		Format:         strings.ToLower(strings.TrimSpace(rp.Format)),
		Pattern:        rp.Pattern,
		Minimum:        rp.Minimum,
		Maximum:        rp.Maximum,
		Nullable:       nullableType,
		AlwaysRequired: rp.AlwaysRequired,
		Title:          rp.Title,
		Description:    rp.Description,
		Example:        example,
		Enum:           rp.Enum,
		Widget:         strings.TrimSpace(rp.Widget),
	}
	if rp.Nullable != nil && *rp.Nullable {
		prop.Nullable = true
	}
	if rp.XNullable != nil && *rp.XNullable {
		prop.Nullable = true
	}
	return prop, nil
}

// decodeType accepts "string" or ["string","null"].
func decodeType(node *yaml.Node) (string, bool, error) {
	switch node.Kind {
	case 0:
		return "", false, nil
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return "", false, nil
		}
		return node.Value, false, nil
	case yaml.SequenceNode:
	default:
		return "", false, errors.New("type must be a string or list of strings")
	}

	var (
		typ      string
		nullable bool
	)
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return "", false, errors.New("type must be a string or list of strings")
		}
		if item.Value == "null" {
			nullable = true
			continue
		}
		if typ == "" {
			typ = item.Value
		}
	}
	return typ, nullable, nil
}

// scalarValue decodes an optional value. Unquoted YAML dates stay strings.
func scalarValue(node *yaml.Node) (any, error) {
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!timestamp" {
		return node.Value, nil
	}
	var value any
	if err := node.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// OrderedKeys walks a JSON or YAML document following path (mapping keys
// only) and returns the keys of the mapping found there, in document order.
func OrderedKeys(raw []byte, path ...string) ([]string, error) {
	node, err := decodeRoot(raw)
	if err != nil {
		return nil, err
	}
	for _, segment := range path {
		_, values, err := mappingEntries(node)
		if err != nil {
			return nil, err
		}
		next, ok := values[segment]
		if !ok {
			return nil, fmt.Errorf("schema: path segment %q not found", segment)
		}
		node = next
	}
	keys, _, err := mappingEntries(node)
	return keys, err
}

func decodeRoot(raw []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("expected an object")
	}
	return doc.Content[0], nil
}

// mappingEntries returns the keys of a mapping node in order with their
// value nodes. Aliases are followed; duplicate keys are an error.
func mappingEntries(node *yaml.Node) ([]string, map[string]*yaml.Node, error) {
	node = resolveAlias(node)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, nil, errors.New("expected an object")
	}
	keys := make([]string, 0, len(node.Content)/2)
	values := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if _, dup := values[key]; dup {
			return nil, nil, fmt.Errorf("duplicate key %q at line %d", key, node.Content[i].Line)
		}
		keys = append(keys, key)
		values[key] = resolveAlias(node.Content[i+1])
	}
	return keys, values, nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

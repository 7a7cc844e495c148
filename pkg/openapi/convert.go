package openapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formwizard/pkg/schema"
)

const (
	extNullable       = "x-nullable"
	extAlwaysRequired = "x-always-required"
	extWidget         = "x-widget"
)

// Schema converts the named definition into a wizard schema. Properties keep
// their declared order; properties without a usable schema are logged and
// skipped.
func (d *Document) Schema(name string, logger *slog.Logger) (schema.Schema, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ref, ok := d.definition(name)
	if !ok {
		return schema.Schema{}, fmt.Errorf("openapi: definition %q not found", name)
	}

	props := make([]schema.Property, 0, len(ref.Value.Properties))
	for _, propName := range orderNames(ref.Value.Properties, d.propertyOrder(name)) {
		propRef := ref.Value.Properties[propName]
		if propRef == nil || propRef.Value == nil {
			logger.Warn("openapi: skipping malformed property", "definition", name, "field", propName)
			continue
		}
		props = append(props, toProperty(propName, propRef.Value))
	}
	return schema.New(props...)
}

// orderNames returns the keys of props following declared, then any keys the
// declared order missed in alphabetical order.
func orderNames(props openapi3.Schemas, declared []string) []string {
	out := make([]string, 0, len(props))
	seen := make(map[string]struct{}, len(props))
	for _, name := range declared {
		if _, ok := props[name]; ok {
			out = append(out, name)
			seen[name] = struct{}{}
		}
	}
	var rest []string
	for name := range props {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func toProperty(name string, s *openapi3.Schema) schema.Property {
	prop := schema.Property{
		Name:           name,
		Format:         strings.ToLower(strings.TrimSpace(s.Format)),
		Pattern:        s.Pattern,
		Minimum:        s.Min,
		Maximum:        s.Max,
		Nullable:       s.Nullable || extBool(s.Extensions, extNullable),
		AlwaysRequired: extBool(s.Extensions, extAlwaysRequired),
		Title:          s.Title,
		Description:    s.Description,
		Example:        s.Example,
		Enum:           s.Enum,
		Widget:         extString(s.Extensions, extWidget),
	}
	if s.Type != nil {
		for _, typ := range s.Type.Slice() {
			if typ == "null" {
				prop.Nullable = true
				continue
			}
			if prop.Type == "" {
				prop.Type = typ
			}
		}
	}
	if prop.Type == "" && len(s.Properties) > 0 {
		prop.Type = schema.TypeObject
	}
	return prop
}

func extValue(ext map[string]any, key string) any {
	if ext == nil {
		return nil
	}
	value := ext[key]
	if raw, ok := value.(json.RawMessage); ok {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			return decoded
		}
	}
	return value
}

func extBool(ext map[string]any, key string) bool {
	switch v := extValue(ext, key).(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

func extString(ext map[string]any, key string) string {
	if text, ok := extValue(ext, key).(string); ok {
		return strings.TrimSpace(text)
	}
	return ""
}

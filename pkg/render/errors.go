package render

import (
	"maps"
	"slices"
	"strings"
)

// ErrorMapping splits a server error payload into messages addressed to a
// known field and messages that belong on the page banner.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// First collapses Fields to one message per field, joining repeats with "; ".
func (m ErrorMapping) First() map[string]string {
	if len(m.Fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(m.Fields))
	for field, messages := range m.Fields {
		out[field] = strings.Join(messages, "; ")
	}
	return out
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload addresses a record service error payload to the fields of
// one page. A path is matched by its first segment, so "new_duty_station.id",
// "/new_duty_station" and "new_duty_station[0]" all land on new_duty_station.
// Paths naming no field of the page become banner messages, in path order.
func MapErrorPayload(fields []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	if len(payload) == 0 {
		return mapping
	}

	owned := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		owned[name] = struct{}{}
	}

	for _, path := range slices.Sorted(maps.Keys(payload)) {
		messages := normalizeMessages(payload[path])
		if len(messages) == 0 {
			continue
		}
		if name := fieldOf(path); name != "" {
			if _, ok := owned[name]; ok {
				mapping.Fields[name] = append(mapping.Fields[name], messages...)
				continue
			}
		}
		mapping.Form = append(mapping.Form, messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// fieldOf returns the record field an error path starts with, after any JSON
// pointer ("/a/b") or JSONPath ("$.a.b") prefix.
func fieldOf(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "#")
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimLeft(path, "./")
	if end := strings.IndexAny(path, "./["); end >= 0 {
		path = path[:end]
	}
	return path
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

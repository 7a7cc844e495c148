// Package openapi resolves wizard schemas from the definitions section of an
// OpenAPI 3 or Swagger 2 document, using kin-openapi for parsing and
// reference resolution.
package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/schema"
)

// Document is a parsed API description with its raw payload kept for
// recovering property order, which kin-openapi maps do not preserve.
type Document struct {
	spec *openapi3.T
	raw  []byte
	// base is the path to the definitions object in raw.
	base []string
}

// ParseDocument parses an OpenAPI 3 or Swagger 2 document in JSON or YAML.
// Swagger 2 documents are converted to OpenAPI 3.
func ParseDocument(ctx context.Context, raw []byte) (*Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("openapi: document is empty")
	}

	var version struct {
		Swagger string `yaml:"swagger"`
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(raw, &version); err != nil {
		return nil, fmt.Errorf("openapi: decode document: %w", err)
	}

	if version.Swagger != "" {
		spec, err := convertSwagger(raw)
		if err != nil {
			return nil, err
		}
		return &Document{spec: spec, raw: raw, base: []string{"definitions"}}, nil
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	return &Document{spec: spec, raw: raw, base: []string{"components", "schemas"}}, nil
}

func convertSwagger(raw []byte) (*openapi3.T, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("openapi: decode swagger document: %w", err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("openapi: re-encode swagger document: %w", err)
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(asJSON, &doc2); err != nil {
		return nil, fmt.Errorf("openapi: decode swagger document: %w", err)
	}
	spec, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("openapi: convert swagger document: %w", err)
	}
	return spec, nil
}

// Definitions lists the named schemas in the document, sorted.
func (d *Document) Definitions() []string {
	if d == nil || d.spec == nil || d.spec.Components == nil {
		return nil
	}
	names := make([]string, 0, len(d.spec.Components.Schemas))
	for name := range d.spec.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Document) definition(name string) (*openapi3.SchemaRef, bool) {
	if d == nil || d.spec == nil || d.spec.Components == nil {
		return nil, false
	}
	ref, ok := d.spec.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, false
	}
	return ref, true
}

// propertyOrder returns the declared order of a definition's properties, or
// nil when it cannot be recovered.
func (d *Document) propertyOrder(name string) []string {
	path := append(append([]string(nil), d.base...), name, "properties")
	keys, err := schema.OrderedKeys(d.raw, path...)
	if err != nil {
		return nil
	}
	return keys
}

package schema_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/schema"
)

const storageDefinition = `{
  "type": "object",
  "properties": {
    "planned_move_date": {"type": "string", "format": "date", "title": "Move Date", "example": "2018-04-26", "x-nullable": true, "x-always-required": true},
    "pickup_postal_code": {"type": "string", "format": "zip", "title": "Pickup ZIP", "pattern": "^(\\d{5}([\\-]\\d{4})?)$", "x-nullable": true, "x-always-required": true},
    "days_in_storage": {"type": "integer", "title": "Days in Storage", "minimum": 0, "maximum": 90, "x-always-required": true},
    "has_dependents": {"type": ["boolean", "null"]},
    "orders_type": {"type": "string", "enum": ["PCS", "SEPARATION"]}
  }
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse_DefinitionPreservesOrder(t *testing.T) {
	s, err := schema.Parse([]byte(storageDefinition))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []string{"planned_move_date", "pickup_postal_code", "days_in_storage", "has_dependents", "orders_type"}
	if diff := cmp.Diff(want, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	prop, ok := s.Lookup("days_in_storage")
	if !ok {
		t.Fatalf("days_in_storage missing")
	}
	if prop.Minimum == nil || *prop.Minimum != 0 || prop.Maximum == nil || *prop.Maximum != 90 {
		t.Fatalf("unexpected range: %+v", prop)
	}

	date, _ := s.Lookup("planned_move_date")
	if !date.Nullable || !date.AlwaysRequired {
		t.Fatalf("expected nullable and always-required: %+v", date)
	}
	if date.Label() != "Move Date" {
		t.Fatalf("label = %q", date.Label())
	}

	deps, _ := s.Lookup("has_dependents")
	if deps.Type != schema.TypeBoolean || !deps.Nullable {
		t.Fatalf("expected nullable boolean from type list: %+v", deps)
	}
}

func TestParse_BarePropertyMap(t *testing.T) {
	raw := `{"properties": {"type": "string"}, "name": {"type": "string"}}`
	s, err := schema.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"properties", "name"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_DefinitionWithoutType(t *testing.T) {
	raw := `{"title": "Estimate", "required": ["weight"], "x-group": "ppm", "properties": {"weight": {"type": "integer"}}}`
	s, err := schema.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"weight"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

const storageYAML = `
planned_move_date:
  type: string
  format: date
  example: 2018-04-26
  x-nullable: true
  x-always-required: true
weight:
  type: [integer, "null"]
  minimum: 1
orders_type:
  type: string
  enum: [PCS, SEPARATION]
`

func TestParse_YAML(t *testing.T) {
	s, err := schema.Parse([]byte(storageYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"planned_move_date", "weight", "orders_type"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	date, _ := s.Lookup("planned_move_date")
	if date.Example != "2018-04-26" || !date.Nullable || !date.AlwaysRequired {
		t.Fatalf("unexpected planned_move_date %+v", date)
	}
	weight, _ := s.Lookup("weight")
	if weight.Type != schema.TypeInteger || !weight.Nullable || weight.Minimum == nil || *weight.Minimum != 1 {
		t.Fatalf("unexpected weight %+v", weight)
	}
	orders, _ := s.Lookup("orders_type")
	if diff := cmp.Diff([]any{"PCS", "SEPARATION"}, orders.Enum); diff != "" {
		t.Fatalf("enum mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_YAMLDuplicateKeysFail(t *testing.T) {
	raw := "a:\n  type: string\na:\n  type: integer\n"
	if _, err := schema.Parse([]byte(raw)); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestParse_SkipsMalformedEntries(t *testing.T) {
	raw := `{"good": {"type": "string"}, "bad": 42, "worse": {"type": {"nested": true}}}`

	var issues []error
	s, err := schema.Parse([]byte(raw), schema.WithLogger(quietLogger()), schema.CollectIssues(&issues))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"good"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	for _, issue := range issues {
		if !errors.Is(issue, schema.ErrMalformedEntry) {
			t.Fatalf("issue %v is not ErrMalformedEntry", issue)
		}
	}
}

func TestParse_DuplicateKeysFail(t *testing.T) {
	raw := `{"a": {"type": "string"}, "a": {"type": "integer"}}`
	if _, err := schema.Parse([]byte(raw)); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestSchema_FilterAndMarshalRoundTrip(t *testing.T) {
	s := schema.MustNew(
		schema.Property{Name: "b", Type: schema.TypeString},
		schema.Property{Name: "a", Type: schema.TypeBoolean},
	)

	filtered := s.Filter(map[string]any{"a": true, "zzz": 1})
	if diff := cmp.Diff(map[string]any{"a": true}, filtered); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}

	raw, err := s.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded schema.Schema
	if err := decoded.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, decoded.Names()); diff != "" {
		t.Fatalf("order lost (-want +got):\n%s", diff)
	}
}

func TestOrderedKeys(t *testing.T) {
	doc := `{"components": {"schemas": {"Orders": {"properties": {"z": {}, "a": {}, "m": {}}}}}}`
	keys, err := schema.OrderedKeys([]byte(doc), "components", "schemas", "Orders", "properties")
	if err != nil {
		t.Fatalf("ordered keys: %v", err)
	}
	if diff := cmp.Diff([]string{"z", "a", "m"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestConstraint_Dispatch(t *testing.T) {
	minWeight := 1.0
	cases := []struct {
		prop schema.Property
		want schema.Kind
	}{
		{schema.Property{Name: "d", Type: "string", Format: "date"}, schema.KindDate},
		{schema.Property{Name: "z", Type: "string", Format: "zip"}, schema.KindZip},
		{schema.Property{Name: "w", Type: "integer", Minimum: &minWeight}, schema.KindInteger},
		{schema.Property{Name: "b", Type: "boolean"}, schema.KindBoolean},
		{schema.Property{Name: "e", Type: "string", Enum: []any{"PCS"}}, schema.KindEnum},
		{schema.Property{Name: "o", Type: "object"}, schema.KindReference},
		{schema.Property{Name: "t", Type: "string"}, schema.KindText},
		{schema.Property{Name: "u"}, schema.KindText},
	}
	for _, tc := range cases {
		if got := schema.KindOf(tc.prop); got != tc.want {
			t.Errorf("KindOf(%s) = %s, want %s", tc.prop.Name, got, tc.want)
		}
	}
}

func TestConstraint_RequiredIndependentOfNullable(t *testing.T) {
	prop := schema.Property{Name: "weight", Type: "integer", Nullable: true, AlwaysRequired: true}
	c := prop.Constraint(false)
	if !c.Required || !c.Nullable {
		t.Fatalf("expected required and nullable, got %+v", c)
	}

	optional := schema.Property{Name: "notes", Type: "string"}
	if !optional.Constraint(true).Required {
		t.Fatalf("page-level required flag ignored")
	}
}

func TestConstraint_PatternHandling(t *testing.T) {
	zip := schema.Property{Name: "zip", Type: "string", Format: "zip"}.Constraint(false)
	if zip.Pattern == nil || zip.RawPattern != schema.DefaultZipPattern {
		t.Fatalf("expected default zip pattern, got %+v", zip)
	}

	broken := schema.Property{Name: "code", Type: "string", Pattern: "(["}.Constraint(false)
	if broken.Pattern != nil || broken.PatternErr == nil {
		t.Fatalf("expected pattern error, got %+v", broken)
	}
}

func TestLoader_LoadsInlineAndFS(t *testing.T) {
	ctx := context.Background()
	files := fstest.MapFS{"schemas/storage.json": {Data: []byte(storageDefinition)}}
	loader := schema.NewLoader(schema.WithFileSystem(files))

	data, err := loader.Load(ctx, schema.SourceFromFS("schemas/storage.json"))
	if err != nil {
		t.Fatalf("load fs: %v", err)
	}
	if string(data) != storageDefinition {
		t.Fatalf("unexpected fs payload")
	}

	inline, err := loader.Load(ctx, schema.SourceFromBytes("inline", []byte(`{"a":{}}`)))
	if err != nil {
		t.Fatalf("load inline: %v", err)
	}
	if string(inline) != `{"a":{}}` {
		t.Fatalf("unexpected inline payload %q", inline)
	}

	url, err := schema.SourceFromURL("https://example.test/schema.json")
	if err != nil {
		t.Fatalf("url source: %v", err)
	}
	if _, err := loader.Load(ctx, url); err == nil {
		t.Fatalf("expected http disabled error")
	}
}

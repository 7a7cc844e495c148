package fields_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/fields"
	"github.com/goliatone/go-formwizard/pkg/schema"
)

func ptr(v float64) *float64 { return &v }

func storageSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.New(
		schema.Property{Name: "planned_move_date", Type: "string", Format: "date", Nullable: true, AlwaysRequired: true, Example: "2018-04-26"},
		schema.Property{Name: "pickup_postal_code", Type: "string", Format: "zip", Pattern: `^(\d{5}([\-]\d{4})?)$`, AlwaysRequired: true},
		schema.Property{Name: "weight", Type: "integer", Minimum: ptr(1), AlwaysRequired: true},
		schema.Property{Name: "days_in_storage", Type: "integer", Minimum: ptr(0), Maximum: ptr(90)},
		schema.Property{Name: "has_dependents", Type: "boolean", AlwaysRequired: true},
		schema.Property{Name: "orders_type", Type: "string", Enum: []any{"PCS", "SEPARATION"}},
		schema.Property{Name: "new_duty_station", Type: "object", Title: "New Duty Station"},
		schema.Property{Name: "notes", Type: "string", Pattern: "(["},
	)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func build(t *testing.T, b *fields.Builder, name string, required bool) fields.Field {
	t.Helper()
	field, err := b.Build(name, required)
	if err != nil {
		t.Fatalf("build %s: %v", name, err)
	}
	return field
}

func TestBuild_DispatchesClosedKinds(t *testing.T) {
	b := fields.NewBuilder(storageSchema(t), fields.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	cases := map[string]struct {
		control string
		check   func(fields.Field) bool
	}{
		"planned_move_date":  {fields.ControlDatePicker, func(f fields.Field) bool { _, ok := f.(fields.Date); return ok }},
		"pickup_postal_code": {fields.ControlMaskedInput, func(f fields.Field) bool { _, ok := f.(fields.ZipCode); return ok }},
		"weight":             {fields.ControlNumber, func(f fields.Field) bool { _, ok := f.(fields.IntegerRange); return ok }},
		"has_dependents":     {fields.ControlYesNo, func(f fields.Field) bool { _, ok := f.(fields.Boolean); return ok }},
		"orders_type":        {fields.ControlSelect, func(f fields.Field) bool { _, ok := f.(fields.Enum); return ok }},
		"new_duty_station":   {fields.ControlSearchBox, func(f fields.Field) bool { _, ok := f.(fields.Reference); return ok }},
		"notes":              {fields.ControlInput, func(f fields.Field) bool { _, ok := f.(fields.Text); return ok }},
	}

	for name, tc := range cases {
		field := build(t, b, name, false)
		if !tc.check(field) {
			t.Errorf("%s: unexpected variant %T", name, field)
		}
		if got := field.Render(nil).Control; got != tc.control {
			t.Errorf("%s: control = %q, want %q", name, got, tc.control)
		}
	}
}

func TestBuild_UnknownField(t *testing.T) {
	_, err := fields.Build("missing", storageSchema(t))
	if !errors.Is(err, fields.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func TestBuildAll_OmitsUnknownAndLogs(t *testing.T) {
	var logs bytes.Buffer
	b := fields.NewBuilder(storageSchema(t), fields.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	built := b.BuildAll([]string{"weight", "ghost", "orders_type"}, nil)
	var names []string
	for _, f := range built {
		names = append(names, f.Name())
	}
	if diff := cmp.Diff([]string{"weight", "orders_type"}, names); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "ghost") {
		t.Fatalf("expected configuration error to be logged, got %q", logs.String())
	}
}

func TestValidate_RequiredIndependentOfNullable(t *testing.T) {
	b := fields.NewBuilder(storageSchema(t))
	date := build(t, b, "planned_move_date", false)

	for _, empty := range []any{nil, "", "   "} {
		if got := date.Validate(empty); got != fields.MessageRequired {
			t.Errorf("Validate(%q) = %q, want required", empty, got)
		}
	}

	optional := build(t, b, "days_in_storage", false)
	if got := optional.Validate(nil); got != "" {
		t.Fatalf("optional empty field should be valid, got %q", got)
	}
	if got := build(t, b, "days_in_storage", true).Validate(nil); got != fields.MessageRequired {
		t.Fatalf("page-required field should fail, got %q", got)
	}
}

func TestValidate_FalseAndZeroAreValues(t *testing.T) {
	b := fields.NewBuilder(storageSchema(t))
	if got := build(t, b, "has_dependents", false).Validate(false); got != "" {
		t.Fatalf("false should satisfy required boolean, got %q", got)
	}
	if got := build(t, b, "days_in_storage", true).Validate(0); got != "" {
		t.Fatalf("0 should satisfy required integer, got %q", got)
	}
}

func TestValidate_Kinds(t *testing.T) {
	b := fields.NewBuilder(storageSchema(t))

	cases := []struct {
		field string
		value any
		want  string
	}{
		{"planned_move_date", "2018-06-02", ""},
		{"planned_move_date", "2018-6-2", ""},
		{"planned_move_date", "June 2nd", "Enter a valid date (YYYY-MM-DD)."},
		{"pickup_postal_code", "90210", ""},
		{"pickup_postal_code", "90210-1234", ""},
		{"pickup_postal_code", "9021", "Enter a valid ZIP code."},
		{"weight", 0, "Must be at least 1."},
		{"weight", json.Number("1500"), ""},
		{"days_in_storage", 91.0, "Must be at most 90."},
		{"days_in_storage", 2.5, "Must be a whole number."},
		{"days_in_storage", "abc", "Must be a number."},
		{"has_dependents", "maybe", "Choose yes or no."},
		{"orders_type", "PCS", ""},
		{"orders_type", "RETIREMENT", "Choose one of the listed options."},
		{"new_duty_station", map[string]any{"id": "abc"}, ""},
		{"new_duty_station", map[string]any{"name": "Fort Bragg"}, "Select a record."},
		{"notes", "anything goes", ""},
	}
	for _, tc := range cases {
		got := build(t, b, tc.field, false).Validate(tc.value)
		if got != tc.want {
			t.Errorf("%s.Validate(%v) = %q, want %q", tc.field, tc.value, got, tc.want)
		}
	}
}

func TestCoerce(t *testing.T) {
	b := fields.NewBuilder(storageSchema(t))

	cases := []struct {
		field string
		raw   string
		want  any
	}{
		{"planned_move_date", "2018-6-2", "2018-06-02"},
		{"planned_move_date", " ", nil},
		{"weight", "1500", int64(1500)},
		{"has_dependents", "no", false},
		{"has_dependents", "Yes", true},
		{"orders_type", " PCS ", "PCS"},
		{"new_duty_station", "abc", map[string]any{"id": "abc"}},
		{"new_duty_station", `{"id":"abc","name":"Fort Gordon"}`, map[string]any{"id": "abc", "name": "Fort Gordon"}},
	}
	for _, tc := range cases {
		got, err := build(t, b, tc.field, false).Coerce(tc.raw)
		if err != nil {
			t.Errorf("%s.Coerce(%q): %v", tc.field, tc.raw, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%s.Coerce(%q) mismatch (-want +got):\n%s", tc.field, tc.raw, diff)
		}
	}

	if _, err := build(t, b, "weight", false).Coerce("heavy"); err == nil {
		t.Fatalf("expected coercion error for non-numeric weight")
	}
}

func TestRender_WidgetDescription(t *testing.T) {
	b := fields.NewBuilder(storageSchema(t))

	got := build(t, b, "days_in_storage", false).Render(int64(30))
	want := fields.Widget{
		Name:       "days_in_storage",
		Control:    fields.ControlNumber,
		Label:      "days_in_storage",
		Value:      int64(30),
		Display:    "30",
		Attributes: map[string]string{"step": "1", "min": "0", "max": "90"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("widget mismatch (-want +got):\n%s", diff)
	}

	date := build(t, b, "planned_move_date", false).Render("2018-6-2")
	if date.Display != "2018-06-02" || date.Placeholder != "2018-04-26" || !date.Required || !date.Nullable {
		t.Fatalf("unexpected date widget %+v", date)
	}

	yesNo := build(t, b, "has_dependents", false).Render(false)
	wantOptions := []fields.Choice{
		{Label: "Yes", Value: "true"},
		{Label: "No", Value: "false", Selected: true},
	}
	if diff := cmp.Diff(wantOptions, yesNo.Options); diff != "" {
		t.Fatalf("boolean options mismatch (-want +got):\n%s", diff)
	}

	station := build(t, b, "new_duty_station", false).Render(map[string]any{"id": "abc", "name": "Fort Gordon"})
	if station.Display != "Fort Gordon" || station.Label != "New Duty Station" {
		t.Fatalf("unexpected reference widget %+v", station)
	}
}

func TestMalformedPatternIsNoop(t *testing.T) {
	var logs bytes.Buffer
	b := fields.NewBuilder(storageSchema(t), fields.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	notes := build(t, b, "notes", false)
	if got := notes.Validate("(["); got != "" {
		t.Fatalf("malformed pattern should not reject input, got %q", got)
	}
	if !strings.Contains(logs.String(), "malformed pattern") {
		t.Fatalf("expected warning, got %q", logs.String())
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		value any
		want  bool
	}{
		{nil, true},
		{"", true},
		{" ", true},
		{map[string]any{}, true},
		{[]any{}, true},
		{false, false},
		{0, false},
		{"x", false},
		{map[string]any{"id": "1"}, false},
	}
	for _, tc := range cases {
		if got := fields.IsEmpty(tc.value); got != tc.want {
			t.Errorf("IsEmpty(%#v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

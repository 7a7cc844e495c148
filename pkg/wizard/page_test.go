package wizard_test

import (
	"testing"

	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func storagePage(t *testing.T) *wizard.Page {
	t.Helper()
	zero, ninety, one := 0.0, 90.0, 1.0
	s := schema.MustNew(
		schema.Property{Name: "planned_move_date", Type: "string", Format: "date", Nullable: true, AlwaysRequired: true},
		schema.Property{Name: "origin_zip", Type: "string", Format: "zip", Nullable: true, AlwaysRequired: true},
		schema.Property{Name: "weight", Type: "integer", Minimum: &one, AlwaysRequired: true},
		schema.Property{Name: "days_in_storage", Type: "integer", Minimum: &zero, Maximum: &ninety, AlwaysRequired: true},
	)
	c, err := wizard.New([]wizard.PageDescriptor{{
		Key:    "calculator",
		Fields: s.Names(),
	}}, s, nil, wizard.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c.CurrentPage()
}

func TestPageAffordances(t *testing.T) {
	page := storagePage(t)
	valid := wizard.Record{
		"planned_move_date": "2018-04-26",
		"origin_zip":        "90210",
		"weight":            1500,
		"days_in_storage":   30,
	}

	cases := []struct {
		name      string
		state     wizard.PageState
		canSubmit bool
		canReset  bool
	}{
		{"pristine", wizard.PageState{Initial: wizard.Record{}, Values: wizard.Record{"weight": ""}}, false, false},
		{"dirty and valid", wizard.PageState{Initial: wizard.Record{}, Values: valid}, true, true},
		{"dirty and invalid", wizard.PageState{Initial: wizard.Record{}, Values: wizard.Record{"weight": 0}}, false, true},
		{"submitting", wizard.PageState{Initial: wizard.Record{}, Values: valid, Submitting: true}, false, false},
		{"unchanged edit", wizard.PageState{Initial: valid, Values: valid}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := page.CanSubmit(tc.state); got != tc.canSubmit {
				t.Fatalf("CanSubmit = %v, want %v", got, tc.canSubmit)
			}
			if got := page.CanReset(tc.state); got != tc.canReset {
				t.Fatalf("CanReset = %v, want %v", got, tc.canReset)
			}
		})
	}
}

func TestPageValidateRanges(t *testing.T) {
	page := storagePage(t)
	errs := page.Validate(wizard.Record{
		"planned_move_date": "2018-6-2",
		"origin_zip":        "9021",
		"weight":            0,
		"days_in_storage":   91,
	})
	want := map[string]string{
		"origin_zip":      "Enter a valid ZIP code.",
		"weight":          "Must be at least 1.",
		"days_in_storage": "Must be at most 90.",
	}
	if len(errs) != len(want) {
		t.Fatalf("unexpected errors %v", errs)
	}
	for name, msg := range want {
		if errs[name] != msg {
			t.Fatalf("%s: got %q want %q", name, errs[name], msg)
		}
	}
}

package html_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/renderers/html"
	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func ptr(v float64) *float64 { return &v }

func newStorageWizard(t *testing.T) *wizard.Controller {
	t.Helper()
	s := schema.MustNew(
		schema.Property{Name: "planned_move_date", Type: schema.TypeString, Format: schema.FormatDate, Title: "Move date"},
		schema.Property{Name: "has_pro_gear", Type: schema.TypeBoolean, Title: "Pro gear", Description: `Books and <em>tools</em><script>alert(1)</script>`},
		schema.Property{Name: "days_in_storage", Type: schema.TypeInteger, Minimum: ptr(0), Maximum: ptr(90)},
		schema.Property{Name: "orders_type", Type: schema.TypeString, Enum: []any{"PCS", "SEPARATION"}},
		schema.Property{Name: "new_duty_station", Type: schema.TypeObject, Title: "Duty station"},
	)
	pages := []wizard.PageDescriptor{
		{Key: "dates", Title: "Dates", Fields: []string{"planned_move_date", "has_pro_gear", "days_in_storage", "orders_type"}, Required: []string{"planned_move_date"}},
		{Key: "station", Title: "Station", Fields: []string{"new_duty_station"}},
	}
	c, err := wizard.New(pages, s, nil,
		wizard.WithName("storage"),
		wizard.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("new wizard: %v", err)
	}
	return c
}

func render(t *testing.T, r *html.Renderer, c *wizard.Controller) string {
	t.Helper()
	view, err := c.View()
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	var buf bytes.Buffer
	if err := r.RenderPage(&buf, "/wizards/storage/", view); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func assertContains(t *testing.T, out string, fragments ...string) {
	t.Helper()
	for _, fragment := range fragments {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected output to contain %q\n%s", fragment, out)
		}
	}
}

func TestRenderPageControls(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out := render(t, r, newStorageWizard(t))

	assertContains(t, out,
		`data-page="dates"`,
		`action="/wizards/storage/dates"`,
		`formaction="/wizards/storage/dates/cancel"`,
		`type="date"`,
		`type="radio" name="has_pro_gear" value="true"`,
		`type="number"`,
		` max="90"`,
		` min="0"`,
		`<option value="PCS">`,
		`aria-current="step"`,
		`>Cancel<`,
		`>Next<`,
	)
	if strings.Contains(out, "<script>") {
		t.Fatalf("description was not sanitized:\n%s", out)
	}
	assertContains(t, out, "<em>tools</em>")
	if strings.Contains(out, `href="/wizards/storage/station"`) {
		t.Fatalf("unreached page must not be linked:\n%s", out)
	}
	if strings.Contains(out, "wizard-reset") {
		t.Fatalf("reset must be hidden on a pristine page:\n%s", out)
	}
}

func TestRenderPageShowsErrorsAndLinks(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	c := newStorageWizard(t)

	if _, err := c.SubmitCurrentPage(wizard.Record{"days_in_storage": int64(120)}); !errors.Is(err, wizard.ErrInvalidPage) {
		t.Fatalf("expected invalid page, got %v", err)
	}
	out := render(t, r, c)
	assertContains(t, out, "has-error", "Must be at most 90.", "Required.", `value="120"`, "wizard-reset")

	if _, err := c.SubmitCurrentPage(wizard.Record{"planned_move_date": "2018-04-26"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	out = render(t, r, c)
	assertContains(t, out,
		`data-page="station"`,
		`href="/wizards/storage/dates"`,
		`type="search"`,
		`type="hidden" name="new_duty_station"`,
		`>Back<`,
		`>Save<`,
	)
}

func TestRenderPageBannerIsSanitized(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	c := newStorageWizard(t)
	if _, err := c.SubmitCurrentPage(wizard.Record{"planned_move_date": "2018-04-26"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.SubmitCurrentPage(wizard.Record{}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	failing := wizard.SubmitterFunc(func(context.Context, wizard.Record) error {
		return &wizard.SubmissionError{Status: 500, Message: `<img src=x onerror=alert(1)>Storage is down`}
	})
	if err := c.Submit(context.Background(), failing); err == nil {
		t.Fatalf("expected submit failure")
	}

	out := render(t, r, c)
	assertContains(t, out, `class="wizard-banner"`, "Storage is down")
	if strings.Contains(out, "onerror") {
		t.Fatalf("banner was not sanitized:\n%s", out)
	}
}

func TestRenderError(t *testing.T) {
	r, err := html.New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	var buf bytes.Buffer
	err = r.RenderError(&buf, html.ErrorPage{
		Wizard:   "orders_info",
		Message:  "Could not load the form.",
		Retry:    "/wizards/orders_info",
		Fallback: "/",
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	assertContains(t, buf.String(), "Something went wrong", "Could not load the form.", `href="/wizards/orders_info"`, `href="/"`)
}

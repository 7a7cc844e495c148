package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	infoMessages []string
	inputPos     int
	selectPos    int
	confirmPos   int
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) said(fragment string) bool {
	for _, msg := range s.infoMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

type stationSearch struct{ queries []string }

func (s *stationSearch) Search(_ context.Context, field, query string) ([]wizard.Record, error) {
	s.queries = append(s.queries, field+":"+query)
	return []wizard.Record{{"id": "ds-1", "name": "Fort Bragg"}}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOrdersWizard(t *testing.T) *wizard.Controller {
	t.Helper()
	s := schema.MustNew(
		schema.Property{Name: "orders_type", Type: schema.TypeString, Enum: []any{"PCS", "SEPARATION"}, AlwaysRequired: true},
		schema.Property{Name: "issue_date", Type: schema.TypeString, Format: schema.FormatDate, AlwaysRequired: true},
		schema.Property{Name: "has_dependents", Type: schema.TypeBoolean, AlwaysRequired: true},
		schema.Property{Name: "new_duty_station", Type: schema.TypeObject, AlwaysRequired: true},
	)
	pages := []wizard.PageDescriptor{
		{Key: "orders", Title: "Orders", Fields: []string{"orders_type", "issue_date", "has_dependents"}},
		{Key: "station", Title: "Duty station", Fields: []string{"new_duty_station"}},
	}
	c, err := wizard.New(pages, s, nil, wizard.WithName("orders_info"), wizard.WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new wizard: %v", err)
	}
	return c
}

func wantOrdersRecord() wizard.Record {
	return wizard.Record{
		"orders_type":      "PCS",
		"issue_date":       "2018-04-26",
		"has_dependents":   false,
		"new_duty_station": map[string]any{"id": "ds-1", "name": "Fort Bragg"},
	}
}

func TestRunSubmitsCompletedWizard(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"2018-13-40", "2018-4-26", "Bragg"},
		selectIdx: []int{0, 1, 0, 0, 0},
		confirm:   []bool{true},
	}
	search := &stationSearch{}
	runner := New(WithPromptDriver(driver), WithSearcher(search), WithLogger(quietLogger()))

	var submitted wizard.Record
	submitter := wizard.SubmitterFunc(func(_ context.Context, record wizard.Record) error {
		submitted = record
		return nil
	})

	c := newOrdersWizard(t)
	result, err := runner.Run(context.Background(), c, submitter)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Submitted || result.Exited {
		t.Fatalf("unexpected result %+v", result)
	}
	if diff := cmp.Diff(wantOrdersRecord(), submitted); diff != "" {
		t.Fatalf("submitted record mismatch (-want +got):\n%s", diff)
	}
	if !c.IsClosed() {
		t.Fatalf("session should be destroyed after a successful submission")
	}
	if !driver.said("Enter a valid date (YYYY-MM-DD).") {
		t.Fatalf("expected inline date error, got %v", driver.infoMessages)
	}
	if diff := cmp.Diff([]string{"new_duty_station:Bragg"}, search.queries); diff != "" {
		t.Fatalf("search mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRetriesAfterFailedSubmission(t *testing.T) {
	driver := &stubDriver{
		// page 1, page 2 search, then page 2 again keeping the chosen station
		inputs:    []string{"2018-04-26", "Bragg", "Fort Bragg"},
		selectIdx: []int{0, 1, 0, 0, 0, 0},
		confirm:   []bool{true, true},
	}
	runner := New(WithPromptDriver(driver), WithSearcher(&stationSearch{}), WithLogger(quietLogger()))

	attempts := 0
	submitter := wizard.SubmitterFunc(func(context.Context, wizard.Record) error {
		attempts++
		if attempts == 1 {
			return &wizard.SubmissionError{
				Status: 422,
				Fields: wizard.FieldErrors{"new_duty_station": "Station is closed"},
			}
		}
		return nil
	})

	result, err := runner.Run(context.Background(), newOrdersWizard(t), submitter)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts != 2 || !result.Submitted {
		t.Fatalf("expected a retry, attempts=%d result=%+v", attempts, result)
	}
	if !driver.said("Station is closed") {
		t.Fatalf("expected server error to be shown, got %v", driver.infoMessages)
	}
	if diff := cmp.Diff(wantOrdersRecord(), result.Record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCancelOnFirstPageExits(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"2018-04-26"},
		selectIdx: []int{0, 0, 1},
	}
	c := newOrdersWizard(t)
	result, err := New(WithPromptDriver(driver)).Run(context.Background(), c, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Exited || result.Record != nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if !c.IsClosed() {
		t.Fatalf("expected session to be destroyed")
	}
}

func TestRunWithoutSubmitterReturnsRecord(t *testing.T) {
	driver := &stubDriver{
		inputs:    []string{"2018-04-26", "ds-1"},
		selectIdx: []int{0, 1, 0, 0},
	}
	result, err := New(WithPromptDriver(driver)).Run(context.Background(), newOrdersWizard(t), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := wantOrdersRecord()
	want["new_duty_station"] = map[string]any{"id": "ds-1"}
	if diff := cmp.Diff(want, result.Record); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
	if result.Submitted {
		t.Fatalf("nothing should have been submitted")
	}
}

func TestRunPropagatesAbort(t *testing.T) {
	driver := &abortingDriver{stubDriver: &stubDriver{}}
	_, err := New(WithPromptDriver(driver)).Run(context.Background(), newOrdersWizard(t), nil)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

type abortingDriver struct{ *stubDriver }

func (d *abortingDriver) Select(context.Context, SelectConfig) (int, error) { return 0, ErrAborted }

func TestSerialize(t *testing.T) {
	record := wizard.Record{"weight": int64(1200), "station": map[string]any{"id": "ds-1"}}

	pretty, err := Serialize(record, OutputFormatPrettyText)
	if err != nil {
		t.Fatalf("pretty: %v", err)
	}
	if string(pretty) != "station.id=ds-1\nweight=1200\n" {
		t.Fatalf("unexpected pretty output %q", pretty)
	}

	form, err := Serialize(record, OutputFormatFormURLEncoded)
	if err != nil {
		t.Fatalf("form: %v", err)
	}
	if string(form) != "station.id=ds-1&weight=1200" {
		t.Fatalf("unexpected form output %q", form)
	}

	if _, err := Serialize(record, "xml"); err == nil {
		t.Fatalf("expected unknown format error")
	}
	if ContentType(OutputFormatJSON) != "application/json" {
		t.Fatalf("unexpected content type")
	}
}

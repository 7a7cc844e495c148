// Package wizard sequences schema-driven form pages, accumulates the values
// submitted on each page into a single record and hands that record to an
// external submitter once every page has been completed.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/schema"
)

var (
	// ErrNoPages is returned when a wizard is created without pages.
	ErrNoPages = errors.New("wizard: at least one page is required")
	// ErrInvalidPage wraps page validation failures; see ValidationError.
	ErrInvalidPage = errors.New("wizard: page is invalid")
	// ErrSubmissionInFlight rejects operations while Submit is running.
	ErrSubmissionInFlight = errors.New("wizard: submission in flight")
	// ErrNotComplete is returned by Submit before the last page is accepted.
	ErrNotComplete = errors.New("wizard: wizard is not complete")
	// ErrSessionClosed is returned once the session has been destroyed by a
	// successful submission or a cancel from the first page.
	ErrSessionClosed = errors.New("wizard: session closed")
	// ErrUnknownPage is returned by Navigate for keys not in the page list.
	ErrUnknownPage = errors.New("wizard: unknown page")
	// ErrNotFound is returned by Loader implementations for missing records.
	ErrNotFound = errors.New("wizard: record not found")
	// ErrSessionNotFound is returned by SessionStore implementations.
	ErrSessionNotFound = errors.New("wizard: session not found")
)

// Record maps field names to entered values.
type Record map[string]any

// Clone returns a deep copy of nested maps and slices.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for key, value := range r {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, nested := range v {
			out[key] = cloneValue(nested)
		}
		return out
	case Record:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for idx, nested := range v {
			out[idx] = cloneValue(nested)
		}
		return out
	default:
		return value
	}
}

// FieldErrors maps field names to inline error messages. A page is valid iff
// its FieldErrors is empty.
type FieldErrors map[string]string

// Fields returns the field names in sorted order.
func (e FieldErrors) Fields() []string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidationError reports the field errors of a rejected page submission.
type ValidationError struct {
	Page   string
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ErrInvalidPage.Error()
	}
	return fmt.Sprintf("wizard: page %q is invalid: %s", e.Page, strings.Join(e.Fields.Fields(), ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidPage }

// SubmissionError is the typed failure of a Submitter. Fields is keyed by the
// server's error paths; Message is a non-field message for the page banner.
type SubmissionError struct {
	Status  int
	Fields  FieldErrors
	Message string
	Err     error
}

func (e *SubmissionError) Error() string {
	if e == nil {
		return "wizard: submission failed"
	}
	parts := []string{"wizard: submission failed"}
	if e.Status > 0 {
		parts = append(parts, fmt.Sprintf("status %d", e.Status))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.Fields) > 0 {
		parts = append(parts, "fields "+strings.Join(e.Fields.Fields(), ", "))
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *SubmissionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Submitter sends the accumulated record to the external service.
type Submitter interface {
	SubmitRecord(ctx context.Context, record Record) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, record Record) error

func (f SubmitterFunc) SubmitRecord(ctx context.Context, record Record) error {
	return f(ctx, record)
}

// SchemaFetcher resolves the schema for a form key.
type SchemaFetcher interface {
	FetchSchema(ctx context.Context, formKey string) (schema.Schema, error)
}

// Loader fetches a pre-existing record used to seed edit flows. Missing
// records are reported with ErrNotFound.
type Loader interface {
	LoadExisting(ctx context.Context, id string) (Record, error)
}

// SessionStore persists sessions between requests. Missing or expired
// sessions are reported with ErrSessionNotFound.
type SessionStore interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, session Session) error
	Delete(ctx context.Context, id string) error
}

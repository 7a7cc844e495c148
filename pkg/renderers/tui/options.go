package tui

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// OutputFormat controls how a collected record is serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits a key=value summary.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme holds message prefixes the runner applies when printing.
type Theme struct {
	StepPrefix  string
	InfoPrefix  string
	ErrorPrefix string
}

// Searcher looks up candidate records for reference fields, for example
// duty stations matching a typed name. Each result carries an "id" and
// usually a "name".
type Searcher interface {
	Search(ctx context.Context, field, query string) ([]wizard.Record, error)
}

// Option configures the Runner.
type Option func(*Runner)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithSearcher enables search-then-pick prompts for reference fields. Without
// it the user types the record id.
func WithSearcher(searcher Searcher) Option {
	return func(r *Runner) {
		r.searcher = searcher
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithLogger sets the logger used for search failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

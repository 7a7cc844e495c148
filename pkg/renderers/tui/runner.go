// Package tui drives a wizard from the terminal, one page at a time, using
// survey prompts.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/fields"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const (
	choiceSkip        = "(leave blank)"
	choiceSearchAgain = "(search again)"
)

// Result is the outcome of Run.
type Result struct {
	// Record is the accumulated record, set when the wizard completed.
	Record wizard.Record
	// Submitted is true when the record was accepted by the submitter.
	Submitted bool
	// Exited is true when the user cancelled from the first page.
	Exited bool
}

// Runner prompts for each page of a wizard.
type Runner struct {
	driver   PromptDriver
	searcher Searcher
	theme    Theme
	logger   *slog.Logger
}

// New constructs a Runner using the survey driver unless overridden.
func New(options ...Option) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Run walks c until the record is submitted or the user exits. With a nil
// submitter Run stops once every page is accepted and returns the record.
func (r *Runner) Run(ctx context.Context, c *wizard.Controller, submitter wizard.Submitter) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("tui: context is required")
	}
	if c == nil {
		return Result{}, errors.New("tui: controller is nil")
	}

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if c.IsClosed() {
			return Result{Exited: true}, nil
		}
		if c.IsComplete() {
			done, result, err := r.complete(ctx, c, submitter)
			if done || err != nil {
				return result, err
			}
			continue
		}

		view, err := c.View()
		if err != nil {
			return Result{}, err
		}
		r.info(ctx, r.theme.StepPrefix, fmt.Sprintf("Step %d of %d: %s", view.Index+1, view.Count, pageTitle(view)))
		if view.Banner != "" {
			r.info(ctx, r.theme.ErrorPrefix, view.Banner)
		}

		values, err := r.promptPage(ctx, c.CurrentPage().Fields(), view)
		if err != nil {
			return Result{}, err
		}

		back := "Back"
		if view.First {
			back = "Cancel"
		}
		next := "Continue"
		if view.Last {
			next = "Finish"
		}
		action, err := r.driver.Select(ctx, SelectConfig{Message: "Next step", Options: []string{next, back}})
		if err != nil {
			return Result{}, err
		}
		if action == 1 {
			transition, err := c.CancelCurrentPage()
			if err != nil {
				return Result{}, err
			}
			if transition.Exited {
				return Result{Exited: true}, nil
			}
			continue
		}

		if _, err := c.SubmitCurrentPage(values); err != nil {
			var invalid *wizard.ValidationError
			if !errors.As(err, &invalid) {
				return Result{}, err
			}
			for _, name := range invalid.Fields.Fields() {
				r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", name, invalid.Fields[name]))
			}
		}
	}
}

// complete handles the Completed state. done reports whether Run should
// return result.
func (r *Runner) complete(ctx context.Context, c *wizard.Controller, submitter wizard.Submitter) (done bool, result Result, err error) {
	record := c.AccumulatedRecord()
	if submitter == nil {
		return true, Result{Record: record}, nil
	}
	ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Submit your answers?", Default: true})
	if err != nil {
		return true, Result{}, err
	}
	if !ok {
		if _, err := c.CancelCurrentPage(); err != nil {
			return true, Result{}, err
		}
		return false, Result{}, nil
	}
	if err := c.Submit(ctx, submitter); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return true, Result{}, ctxErr
		}
		r.logger.Debug("tui: submission failed", "wizard", c.Name(), "error", err)
		return false, Result{}, nil
	}
	return true, Result{Record: record, Submitted: true}, nil
}

func (r *Runner) promptPage(ctx context.Context, pageFields []fields.Field, view wizard.PageView) (wizard.Record, error) {
	values := make(wizard.Record, len(pageFields))
	for idx, field := range pageFields {
		if idx >= len(view.Fields) {
			break
		}
		widget := view.Fields[idx]
		if widget.Error != "" {
			r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", widget.Label, widget.Error))
		}

		var (
			value any
			err   error
		)
		switch widget.Control {
		case fields.ControlYesNo, fields.ControlSelect:
			value, err = r.promptChoice(ctx, field, widget)
		case fields.ControlSearchBox:
			value, err = r.promptReference(ctx, field, widget)
		default:
			value, err = r.promptText(ctx, field, widget, widget.Display)
		}
		if err != nil {
			return nil, err
		}
		values[field.Name()] = value
	}
	return values, nil
}

func (r *Runner) promptText(ctx context.Context, field fields.Field, widget wizard.FieldView, current string) (any, error) {
	for {
		raw, err := r.driver.Input(ctx, InputConfig{
			Message: message(widget),
			Default: current,
			Help:    help(widget),
		})
		if err != nil {
			return nil, err
		}
		value, err := field.Coerce(raw)
		if err != nil {
			msg := field.Validate(raw)
			if msg == "" {
				msg = err.Error()
			}
			r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", widget.Label, msg))
			continue
		}
		if msg := field.Validate(value); msg != "" {
			r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", widget.Label, msg))
			continue
		}
		return value, nil
	}
}

func (r *Runner) promptChoice(ctx context.Context, field fields.Field, widget wizard.FieldView) (any, error) {
	labels := make([]string, 0, len(widget.Options)+1)
	selected := -1
	for idx, opt := range widget.Options {
		labels = append(labels, opt.Label)
		if opt.Selected {
			selected = idx
		}
	}
	if !widget.Required {
		labels = append(labels, choiceSkip)
	}
	if selected < 0 {
		selected = 0
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message(widget),
		Options:      labels,
		DefaultIndex: selected,
		Help:         help(widget),
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(widget.Options) {
		return nil, nil
	}
	return field.Coerce(widget.Options[idx].Value)
}

func (r *Runner) promptReference(ctx context.Context, field fields.Field, widget wizard.FieldView) (any, error) {
	if r.searcher == nil {
		return r.promptText(ctx, field, widget, referenceID(widget.Value))
	}
	for {
		query, err := r.driver.Input(ctx, InputConfig{
			Message: message(widget),
			Default: widget.Display,
			Help:    "Type part of a name to search.",
		})
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(query) == "" {
			if widget.Required {
				r.info(ctx, r.theme.ErrorPrefix, fmt.Sprintf("%s: %s", widget.Label, fields.MessageRequired))
				continue
			}
			return nil, nil
		}
		if query == widget.Display && !fields.IsEmpty(widget.Value) {
			return widget.Value, nil
		}

		results, err := r.searcher.Search(ctx, field.Name(), query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.logger.Warn("tui: search failed", "field", field.Name(), "error", err)
			r.info(ctx, r.theme.ErrorPrefix, "Search failed, please try again.")
			continue
		}
		if len(results) == 0 {
			r.info(ctx, r.theme.InfoPrefix, fmt.Sprintf("No matches for %q.", query))
			continue
		}

		labels := make([]string, 0, len(results)+1)
		for _, result := range results {
			labels = append(labels, resultLabel(result))
		}
		labels = append(labels, choiceSearchAgain)
		idx, err := r.driver.Select(ctx, SelectConfig{Message: message(widget), Options: labels})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(results) {
			continue
		}
		return map[string]any(results[idx].Clone()), nil
	}
}

func (r *Runner) info(ctx context.Context, prefix, msg string) {
	_ = r.driver.Info(ctx, prefix+msg)
}

func pageTitle(view wizard.PageView) string {
	if view.Title != "" {
		return view.Title
	}
	return view.Key
}

func message(widget wizard.FieldView) string {
	if widget.Required {
		return widget.Label + " *"
	}
	return widget.Label
}

func help(widget wizard.FieldView) string {
	if widget.Description != "" {
		return widget.Description
	}
	if widget.Placeholder != "" {
		return "e.g. " + widget.Placeholder
	}
	return ""
}

func referenceID(value any) string {
	if record, ok := value.(map[string]any); ok {
		if id, ok := record["id"]; ok && id != nil {
			return fmt.Sprint(id)
		}
	}
	return ""
}

func resultLabel(result wizard.Record) string {
	for _, key := range []string{"name", "title", "label"} {
		if value, ok := result[key]; ok && value != nil {
			return fmt.Sprint(value)
		}
	}
	return fmt.Sprint(result["id"])
}

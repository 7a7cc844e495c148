package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formwizard/pkg/fields"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/schema"
)

// MessageSubmitFailed is the banner shown when a submission fails without a
// server message.
const MessageSubmitFailed = "Your changes could not be saved. Please try again."

// Transition reports the outcome of a page submit or cancel.
type Transition struct {
	From int
	To   int
	// Completed is true the first time the last page is accepted in a pass.
	Completed bool
	// Exited is true when a cancel on the first page destroyed the session.
	Exited bool
}

// Controller owns one wizard session. Its states are AtPage(i) and
// Completed; every method is safe to call from multiple goroutines.
type Controller struct {
	mu sync.Mutex

	name       string
	schema     schema.Schema
	pages      []*Page
	index      map[string]int
	session    *Session
	signalled  bool
	submitting bool
	errs       FieldErrors
	pending    Record
	banner     string

	existingID string
	params     map[string]string
	registry   *fields.Registry
	observer   Observer
	logger     *slog.Logger
	transform  func(Record) Record
	now        func() time.Time
	newID      func() string
}

// New creates a wizard at page 0. The session record starts as exactly
// initial restricted to schema keys; pass nil for a create flow.
func New(pages []PageDescriptor, s schema.Schema, initial Record, options ...Option) (*Controller, error) {
	c, err := build(pages, s, options)
	if err != nil {
		return nil, err
	}
	now := c.now()
	c.session = &Session{
		ID:         c.newID(),
		Wizard:     c.name,
		Record:     Record(s.Filter(initial.Clone())),
		ExistingID: c.existingID,
		Params:     c.params,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	c.emit(c.event(EventStarted, 0, 0, nil))
	return c, nil
}

// Resume rebuilds a controller around a persisted session. Out of range page
// pointers are clamped and unknown record keys dropped.
func Resume(pages []PageDescriptor, s schema.Schema, session Session, options ...Option) (*Controller, error) {
	c, err := build(pages, s, options)
	if err != nil {
		return nil, err
	}
	restored := session.Clone()
	restored.Record = Record(s.Filter(restored.Record))
	if restored.Wizard == "" {
		restored.Wizard = c.name
	}
	restored.clamp(len(c.pages))
	c.session = &restored
	c.signalled = restored.Completed
	c.emit(c.event(EventResumed, restored.Current, restored.Current, nil))
	return c, nil
}

func build(pages []PageDescriptor, s schema.Schema, options []Option) (*Controller, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	c := defaultController()
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	if c.observer == nil {
		c.observer = Observers()
	}
	c.schema = s

	builderOpts := []fields.Option{fields.WithLogger(c.logger)}
	if c.registry != nil {
		builderOpts = append(builderOpts, fields.WithRegistry(c.registry))
	}
	builder := fields.NewBuilder(s, builderOpts...)

	c.index = make(map[string]int, len(pages))
	for idx, desc := range pages {
		key := strings.TrimSpace(desc.Key)
		if key == "" {
			return nil, fmt.Errorf("wizard: page %d has no key", idx)
		}
		if _, dup := c.index[key]; dup {
			return nil, fmt.Errorf("wizard: duplicate page key %q", key)
		}
		desc.Key = key
		c.index[key] = idx
		c.pages = append(c.pages, newPage(desc, builder))
	}
	return c, nil
}

// Name returns the wizard name.
func (c *Controller) Name() string { return c.name }

// Schema returns the schema the wizard was built from.
func (c *Controller) Schema() schema.Schema { return c.schema }

// Pages returns the built pages in order.
func (c *Controller) Pages() []*Page {
	return append([]*Page(nil), c.pages...)
}

// Page returns the page registered under key.
func (c *Controller) Page(key string) (*Page, bool) {
	idx, ok := c.index[key]
	if !ok {
		return nil, false
	}
	return c.pages[idx], true
}

// CurrentIndex returns the current page index. It is 0 once the session is
// closed.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return 0
	}
	return c.session.Current
}

// CurrentPage returns the page at CurrentIndex.
func (c *Controller) CurrentPage() *Page {
	return c.pages[c.CurrentIndex()]
}

// CurrentValues returns the accumulated values owned by the current page.
func (c *Controller) CurrentValues() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Record{}
	}
	return c.pages[c.session.Current].restrict(c.session.Record).Clone()
}

// IsComplete reports whether every page has been accepted.
func (c *Controller) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.Completed
}

// IsClosed reports whether the session has been destroyed.
func (c *Controller) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == nil
}

// IsSubmitting reports whether Submit is in flight.
func (c *Controller) IsSubmitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// AccumulatedRecord returns a copy of the record built so far, or nil once the
// session is closed.
func (c *Controller) AccumulatedRecord() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.Record.Clone()
}

// Session returns a copy of the session. ok is false once it is closed.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return c.session.Clone(), true
}

// Errors returns the field errors shown on the current page: validation
// failures of the last submit or server errors of a failed submission.
func (c *Controller) Errors() FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyErrors(c.errs)
}

// Banner returns the page-level message of a failed submission.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

// SubmitCurrentPage validates values against the current page and, when
// valid, merges the owned fields into the record and advances. Keys the page
// does not own are dropped. Omitted owned fields keep their accumulated value.
// An invalid page returns a *ValidationError wrapping ErrInvalidPage.
func (c *Controller) SubmitCurrentPage(values Record) (Transition, error) {
	c.mu.Lock()
	if err := c.checkOpen(); err != nil {
		c.mu.Unlock()
		return Transition{}, err
	}
	session := c.session
	from := session.Current
	page := c.pages[from]

	submitted := page.restrict(values)
	if dropped := len(values) - len(submitted); dropped > 0 {
		c.logger.Debug("wizard: dropped values not owned by page", "page", page.Key(), "count", dropped)
	}
	view := page.restrict(session.Record)
	for key, value := range submitted {
		view[key] = value
	}

	if errs := page.Validate(view); len(errs) > 0 {
		c.errs = errs
		c.pending = view.Clone()
		c.mu.Unlock()
		verr := &ValidationError{Page: page.Key(), Fields: copyErrors(errs)}
		c.emit(c.event(EventPageInvalid, from, from, verr))
		return Transition{From: from, To: from}, verr
	}

	for key, value := range submitted {
		session.Record[key] = cloneValue(value)
	}
	c.errs = nil
	c.pending = nil
	c.banner = ""

	tr := Transition{From: from}
	events := []Event{}
	if from+1 < len(c.pages) {
		session.Current = from + 1
		if session.Current > session.Reached {
			session.Reached = session.Current
		}
		tr.To = session.Current
		events = append(events, c.event(EventPageSubmitted, from, tr.To, nil))
	} else {
		session.Completed = true
		tr.To = from
		events = append(events, c.event(EventPageSubmitted, from, from, nil))
		if !c.signalled {
			c.signalled = true
			tr.Completed = true
			events = append(events, c.event(EventCompleted, from, from, nil))
		}
	}
	session.UpdatedAt = c.now()
	c.mu.Unlock()

	c.emit(events...)
	return tr, nil
}

// CancelCurrentPage discards in-page edits. From page i > 0 it returns to
// page i-1 keeping the record intact; from page 0 it destroys the session and
// reports Exited. Cancelling a completed wizard returns to the last page.
func (c *Controller) CancelCurrentPage() (Transition, error) {
	c.mu.Lock()
	if err := c.checkOpen(); err != nil {
		c.mu.Unlock()
		return Transition{}, err
	}
	session := c.session
	from := session.Current
	c.errs = nil
	c.pending = nil
	c.banner = ""

	var (
		tr    Transition
		event Event
	)
	switch {
	case session.Completed:
		session.Completed = false
		c.signalled = false
		tr = Transition{From: from, To: from}
		event = c.event(EventPageCancelled, from, from, nil)
	case from > 0:
		session.Current = from - 1
		tr = Transition{From: from, To: from - 1}
		event = c.event(EventPageCancelled, from, from-1, nil)
	default:
		event = c.event(EventExited, from, from, nil)
		c.session = nil
		c.signalled = false
		c.mu.Unlock()
		c.emit(event)
		return Transition{From: from, To: from, Exited: true}, nil
	}
	session.UpdatedAt = c.now()
	c.mu.Unlock()

	c.emit(event)
	return tr, nil
}

// Navigate moves to the page registered under key, as when a bookmarked route
// is opened. A closed session is replaced by a fresh one at page 0. An empty
// record always lands on page 0. Otherwise the target is honoured when it has
// been reached, and the furthest reached page is used when it has not.
func (c *Controller) Navigate(key string) (int, error) {
	target, ok := c.index[strings.TrimSpace(key)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPage, key)
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return 0, ErrSubmissionInFlight
	}
	var events []Event
	if c.session == nil {
		now := c.now()
		c.session = &Session{
			ID:        c.newID(),
			Wizard:    c.name,
			Record:    Record{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		c.signalled = false
		events = append(events, c.event(EventStarted, 0, 0, nil))
	}
	session := c.session
	from := session.Current

	switch {
	case len(session.Record) == 0:
		session.Current = 0
	case target <= session.Reached:
		session.Current = target
	default:
		session.Current = session.Reached
	}
	if session.Completed {
		session.Completed = false
		c.signalled = false
	}
	if session.Current != from {
		c.errs = nil
		c.pending = nil
		c.banner = ""
	}
	session.UpdatedAt = c.now()
	to := session.Current
	events = append(events, c.event(EventNavigated, from, to, nil))
	c.mu.Unlock()

	c.emit(events...)
	return to, nil
}

// Submit hands the accumulated record to submitter. It requires a completed
// wizard and runs at most once at a time; concurrent calls and page
// operations get ErrSubmissionInFlight. On success the session is destroyed.
// On failure the wizard returns to the last page with server field errors
// attached to that page's fields and any other message in the banner; the
// record is preserved.
func (c *Controller) Submit(ctx context.Context, submitter Submitter) error {
	if submitter == nil {
		return errors.New("wizard: submitter is nil")
	}
	c.mu.Lock()
	if err := c.checkOpen(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.session.Completed {
		c.mu.Unlock()
		return ErrNotComplete
	}
	c.submitting = true
	record := c.session.Record.Clone()
	if c.transform != nil {
		record = c.transform(record)
	}
	last := len(c.pages) - 1
	c.mu.Unlock()

	started := c.now()
	err := submitter.SubmitRecord(ctx, record)
	elapsed := c.now().Sub(started)

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		event := c.event(EventSubmitted, last, last, nil)
		event.Duration = elapsed
		c.session = nil
		c.signalled = false
		c.errs = nil
		c.banner = ""
		c.mu.Unlock()
		c.emit(event)
		return nil
	}

	session := c.session
	session.Completed = false
	session.Current = last
	c.signalled = false
	c.pending = nil
	c.errs, c.banner = c.mapSubmissionError(c.pages[last], err)
	session.UpdatedAt = c.now()
	event := c.event(EventSubmitFailed, last, last, err)
	event.Duration = elapsed
	c.mu.Unlock()

	c.emit(event)
	return fmt.Errorf("wizard: submit: %w", err)
}

func (c *Controller) mapSubmissionError(page *Page, err error) (FieldErrors, string) {
	var serr *SubmissionError
	if !errors.As(err, &serr) {
		return nil, MessageSubmitFailed
	}

	payload := make(map[string][]string, len(serr.Fields))
	for path, msg := range serr.Fields {
		payload[path] = []string{msg}
	}
	mapping := render.MapErrorPayload(page.FieldNames(), payload)

	var form []string
	if msg := strings.TrimSpace(serr.Message); msg != "" {
		form = append(form, msg)
	}
	form = render.MergeFormErrors(form, mapping.Form...)

	fieldErrs := FieldErrors(mapping.First())
	if len(fieldErrs) == 0 && len(form) == 0 {
		return nil, MessageSubmitFailed
	}
	return fieldErrs, strings.Join(form, " ")
}

func (c *Controller) checkOpen() error {
	if c.submitting {
		return ErrSubmissionInFlight
	}
	if c.session == nil {
		return ErrSessionClosed
	}
	return nil
}

func (c *Controller) event(kind EventType, from, to int, err error) Event {
	event := Event{
		Type:   kind,
		Wizard: c.name,
		From:   from,
		To:     to,
		Page:   c.pages[to].Key(),
		Err:    err,
	}
	if c.session != nil {
		event.SessionID = c.session.ID
	}
	return event
}

func (c *Controller) emit(events ...Event) {
	if c.observer == nil {
		return
	}
	for _, event := range events {
		c.observer.Observe(event)
	}
}

func copyErrors(errs FieldErrors) FieldErrors {
	if len(errs) == 0 {
		return nil
	}
	out := make(FieldErrors, len(errs))
	for key, value := range errs {
		out[key] = value
	}
	return out
}

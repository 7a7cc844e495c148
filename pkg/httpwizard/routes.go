package httpwizard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-formwizard/pkg/definition"
	"github.com/goliatone/go-formwizard/pkg/renderers/html"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// User facing messages for pages that cannot be shown.
const (
	MessageFormNotFound   = "This form does not exist."
	MessagePageNotFound   = "This page does not exist."
	MessageSchemaFailed   = "The form could not be loaded. Please try again."
	MessageRecordNotFound = "The record you are editing could not be found."
	MessageRecordFailed   = "The record could not be loaded. Please try again."
	MessageMissingParams  = "This form cannot be opened from here."
	MessageInternal       = "Something went wrong. Please try again."
	MessageBusy           = "Your answers are being saved. Please wait."
)

// start opens a fresh session. ?id= seeds the wizard from an existing record;
// the form's declared params are read from the query string.
func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	query := r.URL.Query()

	params := make(map[string]string, len(form.Params))
	for _, name := range form.Params {
		if value := strings.TrimSpace(query.Get(name)); value != "" {
			params[name] = value
		}
	}
	if _, err := form.Submit.Expand(params); err != nil {
		h.fail(w, r, form, http.StatusBadRequest, MessageMissingParams, err)
		return
	}

	s, err := h.schema(ctx, form)
	if err != nil {
		h.fail(w, r, form, http.StatusBadGateway, MessageSchemaFailed, err)
		return
	}

	opts := h.controllerOptions(form, params)
	var initial wizard.Record
	if existingID := strings.TrimSpace(query.Get("id")); existingID != "" {
		record, err := h.loadExisting(r, form, params, existingID)
		if errors.Is(err, wizard.ErrNotFound) {
			h.fail(w, r, form, http.StatusNotFound, MessageRecordNotFound, err)
			return
		}
		if err != nil {
			h.fail(w, r, form, http.StatusBadGateway, MessageRecordFailed, err)
			return
		}
		initial = record
		opts = append(opts, wizard.WithExistingID(existingID))
	}

	if previous, err := h.loadSession(r, form); err == nil {
		if err := h.store.Delete(ctx, previous.ID); err != nil && !errors.Is(err, wizard.ErrSessionNotFound) {
			h.logger.Warn("httpwizard: drop previous session", "wizard", form.Key, "session", previous.ID, "error", err)
		}
	}

	c, err := wizard.New(form.Descriptors(), s, initial, opts...)
	if err != nil {
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
		return
	}
	if err := h.persist(w, r, form, c, ""); err != nil {
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
		return
	}
	http.Redirect(w, r, h.pagePath(form, c.CurrentPage().Key()), http.StatusSeeOther)
}

// show renders a page. Pages beyond the furthest reached one redirect to it.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	c, release, ok := h.resume(w, r, form)
	if !ok {
		return
	}
	defer release()
	key := chi.URLParam(r, "page")
	if _, err := c.Navigate(key); err != nil {
		h.controllerError(w, r, form, err)
		return
	}
	if err := h.persist(w, r, form, c, ""); err != nil {
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
		return
	}
	if landed := c.CurrentPage().Key(); landed != key {
		http.Redirect(w, r, h.pagePath(form, landed), http.StatusSeeOther)
		return
	}
	h.render(w, r, form, c, http.StatusOK)
}

// submit accepts the posted page. Accepting the last page hands the record to
// the record service.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	c, release, ok := h.resume(w, r, form)
	if !ok {
		return
	}
	defer release()
	if current := c.CurrentPage().Key(); current != chi.URLParam(r, "page") {
		http.Redirect(w, r, h.pagePath(form, current), http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, form, http.StatusBadRequest, MessageInternal, err)
		return
	}

	values := pageValues(c.CurrentPage().Fields(), r.PostForm, c.CurrentValues())
	if _, err := c.SubmitCurrentPage(values); err != nil {
		var invalid *wizard.ValidationError
		if !errors.As(err, &invalid) {
			h.controllerError(w, r, form, err)
			return
		}
		if err := h.persist(w, r, form, c, ""); err != nil {
			h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
			return
		}
		h.render(w, r, form, c, http.StatusUnprocessableEntity)
		return
	}

	if !c.IsComplete() {
		if err := h.persist(w, r, form, c, ""); err != nil {
			h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
			return
		}
		http.Redirect(w, r, h.pagePath(form, c.CurrentPage().Key()), http.StatusSeeOther)
		return
	}

	session, _ := c.Session()
	submitter, err := h.submitter(form, session)
	if err != nil {
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
		return
	}
	if err := c.Submit(r.Context(), submitter); err != nil {
		h.logger.Warn("httpwizard: submission failed", "wizard", form.Key, "session", session.ID, "error", err)
		if perr := h.persist(w, r, form, c, ""); perr != nil {
			h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, perr)
			return
		}
		h.render(w, r, form, c, submitStatus(err))
		return
	}
	if err := h.persist(w, r, form, c, session.ID); err != nil {
		h.logger.Warn("httpwizard: delete submitted session", "wizard", form.Key, "session", session.ID, "error", err)
	}
	http.Redirect(w, r, h.fallbackFor(form), http.StatusSeeOther)
}

// cancel goes back one page, or leaves the wizard from the first page.
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	c, release, ok := h.resume(w, r, form)
	if !ok {
		return
	}
	defer release()
	if current := c.CurrentPage().Key(); current != chi.URLParam(r, "page") {
		http.Redirect(w, r, h.pagePath(form, current), http.StatusSeeOther)
		return
	}
	session, _ := c.Session()
	transition, err := c.CancelCurrentPage()
	if err != nil {
		h.controllerError(w, r, form, err)
		return
	}
	if err := h.persist(w, r, form, c, session.ID); err != nil {
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
		return
	}
	if transition.Exited {
		http.Redirect(w, r, h.fallbackFor(form), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, h.pagePath(form, c.CurrentPage().Key()), http.StatusSeeOther)
}

// search returns reference candidates for a field of the form as JSON.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	form, ok := h.lookup(chi.URLParam(r, "wizard"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", MessageFormNotFound)
		return
	}
	field := chi.URLParam(r, "field")
	if h.searcher == nil || !formHasField(form, field) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no search for %q", field))
		return
	}
	results, err := h.searcher.Search(r.Context(), field, r.URL.Query().Get("q"))
	if errors.Is(err, wizard.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("no search for %q", field))
		return
	}
	if err != nil {
		h.logger.Warn("httpwizard: search failed", "wizard", form.Key, "field", field, "error", err)
		writeError(w, http.StatusBadGateway, "SEARCH_FAILED", "search failed")
		return
	}
	if results == nil {
		results = []wizard.Record{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) lookup(key string) (definition.Form, bool) {
	return h.catalog.Lookup(key)
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) (definition.Form, bool) {
	key := chi.URLParam(r, "wizard")
	form, ok := h.lookup(key)
	if !ok {
		h.fail(w, r, definition.Form{Key: key}, http.StatusNotFound, MessageFormNotFound, fmt.Errorf("httpwizard: unknown form %q", key))
		return definition.Form{}, false
	}
	return form, true
}

// resume claims the request's session and rebuilds its controller. Without a
// usable session the client is sent to the start of the form. A session
// claimed by another request answers 409. On success the caller must call
// release once the session has been persisted.
func (h *Handler) resume(w http.ResponseWriter, r *http.Request, form definition.Form) (*wizard.Controller, func(), bool) {
	release, ok := h.claim(w, r, form)
	if !ok {
		return nil, nil, false
	}
	session, err := h.loadSession(r, form)
	if err != nil {
		release()
		if !errors.Is(err, wizard.ErrSessionNotFound) {
			h.logger.Warn("httpwizard: load session", "wizard", form.Key, "error", err)
		}
		target := h.wizardPath(form)
		if r.Method == http.MethodGet && r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return nil, nil, false
	}
	s, err := h.schema(r.Context(), form)
	if err != nil {
		release()
		h.fail(w, r, form, http.StatusBadGateway, MessageSchemaFailed, err)
		return nil, nil, false
	}
	c, err := wizard.Resume(form.Descriptors(), s, session, h.controllerOptions(form, session.Params)...)
	if err != nil {
		release()
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
		return nil, nil, false
	}
	return c, release, true
}

// claim locks the session named by the request cookie. Requests without a
// cookie pass through unclaimed.
func (h *Handler) claim(w http.ResponseWriter, r *http.Request, form definition.Form) (func(), bool) {
	cookie, err := r.Cookie(CookieName(form.Key))
	if err != nil || cookie.Value == "" {
		return func() {}, true
	}
	release, acquired, err := h.locker.TryLock(r.Context(), cookie.Value, h.lockTTL)
	if err != nil {
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
		return nil, false
	}
	if !acquired {
		h.fail(w, r, form, http.StatusConflict, MessageBusy,
			fmt.Errorf("httpwizard: session %q: %w", cookie.Value, wizard.ErrSubmissionInFlight))
		return nil, false
	}
	return release, true
}

func (h *Handler) loadExisting(r *http.Request, form definition.Form, params map[string]string, id string) (wizard.Record, error) {
	if h.client == nil {
		return nil, errors.New("httpwizard: no record client configured")
	}
	endpoint := form.Load
	if endpoint.URL == "" {
		endpoint = form.Submit
	}
	path, err := endpoint.Expand(params)
	if err != nil {
		return nil, err
	}
	return h.client.Records(path).LoadExisting(r.Context(), id)
}

func (h *Handler) submitter(form definition.Form, session wizard.Session) (wizard.Submitter, error) {
	if h.client == nil {
		return nil, errors.New("httpwizard: no record client configured")
	}
	if form.Submit.URL == "" {
		return nil, fmt.Errorf("httpwizard: form %q has no submit endpoint", form.Key)
	}
	path, err := form.Submit.Expand(session.Params)
	if err != nil {
		return nil, err
	}
	return h.client.Records(path).Submitter(session.ExistingID), nil
}

func (h *Handler) controllerError(w http.ResponseWriter, r *http.Request, form definition.Form, err error) {
	switch {
	case errors.Is(err, wizard.ErrUnknownPage):
		h.fail(w, r, form, http.StatusNotFound, MessagePageNotFound, err)
	case errors.Is(err, wizard.ErrSubmissionInFlight):
		h.fail(w, r, form, http.StatusConflict, MessageBusy, err)
	case errors.Is(err, wizard.ErrSessionClosed):
		http.Redirect(w, r, h.wizardPath(form), http.StatusSeeOther)
	default:
		h.fail(w, r, form, http.StatusInternalServerError, MessageInternal, err)
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, form definition.Form, c *wizard.Controller, status int) {
	view, err := c.View()
	if err != nil {
		h.controllerError(w, r, form, err)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.RenderPage(&buf, h.wizardPath(form), view); err != nil {
		h.logger.Error("httpwizard: render page", "wizard", form.Key, "page", view.Key, "error", err)
		http.Error(w, MessageInternal, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", html.ContentType)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// fail renders the error page with retry and exit links.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, form definition.Form, status int, message string, err error) {
	level := h.logger.Warn
	if status >= http.StatusInternalServerError {
		level = h.logger.Error
	}
	level("httpwizard: request failed", "wizard", form.Key, "path", r.URL.Path, "status", status, "error", err)

	page := html.ErrorPage{
		Wizard:   form.Key,
		Title:    form.Title,
		Message:  message,
		Fallback: h.fallbackFor(form),
	}
	if status != http.StatusNotFound && form.Key != "" {
		page.Retry = h.wizardPath(form)
		switch key := chi.URLParam(r, "page"); {
		case r.Method == http.MethodGet:
			page.Retry = r.URL.RequestURI()
		case status == http.StatusConflict && key != "":
			page.Retry = h.pagePath(form, key)
		}
	}
	var buf bytes.Buffer
	if rerr := h.renderer.RenderError(&buf, page); rerr != nil {
		h.logger.Error("httpwizard: render error page", "error", rerr)
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", html.ContentType)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func submitStatus(err error) int {
	var serr *wizard.SubmissionError
	if errors.As(err, &serr) && (serr.Status == http.StatusBadRequest || serr.Status == http.StatusUnprocessableEntity) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func formHasField(form definition.Form, field string) bool {
	for _, page := range form.Pages {
		for _, name := range page.Fields {
			if name == field {
				return true
			}
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

package wizard

import "github.com/goliatone/go-formwizard/pkg/fields"

// FieldView is a rendered field with its inline error.
type FieldView struct {
	fields.Widget
	Error string `json:"error,omitempty"`
}

// Step summarises one page for progress indicators.
type Step struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Current   bool   `json:"current"`
	Reachable bool   `json:"reachable"`
}

// PageView is everything a renderer needs to draw the current page.
type PageView struct {
	Wizard    string      `json:"wizard"`
	SessionID string      `json:"session_id"`
	Key       string      `json:"key"`
	Title     string      `json:"title"`
	Index     int         `json:"index"`
	Count     int         `json:"count"`
	First     bool        `json:"first"`
	Last      bool        `json:"last"`
	Fields    []FieldView `json:"fields"`
	Errors    FieldErrors `json:"errors,omitempty"`
	Banner    string      `json:"banner,omitempty"`
	Steps     []Step      `json:"steps"`
	CanSubmit bool        `json:"can_submit"`
	CanReset  bool        `json:"can_reset"`
	Completed bool        `json:"completed"`
}

// View renders the current page. Values rejected by the last submit are shown
// in place of the accumulated ones so the user can correct them.
func (c *Controller) View() (PageView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return PageView{}, ErrSessionClosed
	}
	session := c.session
	page := c.pages[session.Current]

	initial := page.restrict(session.Record)
	values := initial
	if c.pending != nil {
		values = c.pending
	}
	state := PageState{Initial: initial, Values: values, Submitting: c.submitting}

	view := PageView{
		Wizard:    c.name,
		SessionID: session.ID,
		Key:       page.Key(),
		Title:     page.Title(),
		Index:     session.Current,
		Count:     len(c.pages),
		First:     session.Current == 0,
		Last:      session.Current == len(c.pages)-1,
		Errors:    copyErrors(c.errs),
		Banner:    c.banner,
		CanSubmit: page.CanSubmit(state),
		CanReset:  page.CanReset(state),
		Completed: session.Completed,
	}
	for _, field := range page.fields {
		view.Fields = append(view.Fields, FieldView{
			Widget: field.Render(values[field.Name()]),
			Error:  c.errs[field.Name()],
		})
	}
	for idx, p := range c.pages {
		view.Steps = append(view.Steps, Step{
			Key:       p.Key(),
			Title:     p.Title(),
			Current:   idx == session.Current,
			Reachable: idx <= session.Reached,
		})
	}
	return view, nil
}

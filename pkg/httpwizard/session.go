package httpwizard

import (
	"errors"
	"net/http"

	"github.com/goliatone/go-formwizard/pkg/definition"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const cookiePrefix = "formwizard_"

// CookieName returns the name of the session cookie for a form.
func CookieName(form string) string {
	return cookiePrefix + form
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, form definition.Form, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(form.Key),
		Value:    id,
		Path:     h.wizardPath(form),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter, form definition.Form) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(form.Key),
		Value:    "",
		Path:     h.wizardPath(form),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// loadSession returns the stored session referenced by the request cookie.
// A missing cookie, a missing or expired session and a session belonging to
// another form are all reported as wizard.ErrSessionNotFound.
func (h *Handler) loadSession(r *http.Request, form definition.Form) (wizard.Session, error) {
	cookie, err := r.Cookie(CookieName(form.Key))
	if err != nil || cookie.Value == "" {
		return wizard.Session{}, wizard.ErrSessionNotFound
	}
	session, err := h.store.Load(r.Context(), cookie.Value)
	if err != nil {
		return wizard.Session{}, err
	}
	if session.Wizard != "" && session.Wizard != form.Key {
		return wizard.Session{}, wizard.ErrSessionNotFound
	}
	return session, nil
}

// persist saves the controller session, or deletes it when the controller
// has closed. closedID is the id the session had before closing.
func (h *Handler) persist(w http.ResponseWriter, r *http.Request, form definition.Form, c *wizard.Controller, closedID string) error {
	session, ok := c.Session()
	if !ok {
		h.clearSessionCookie(w, form)
		if closedID == "" {
			return nil
		}
		if err := h.store.Delete(r.Context(), closedID); err != nil && !errors.Is(err, wizard.ErrSessionNotFound) {
			return err
		}
		return nil
	}
	if err := h.store.Save(r.Context(), session); err != nil {
		return err
	}
	h.setSessionCookie(w, form, session.ID)
	return nil
}

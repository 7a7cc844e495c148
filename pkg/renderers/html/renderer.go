// Package html renders wizard pages as server-side HTML forms with pongo2
// templates. Server-supplied text (descriptions, error messages, banners) is
// sanitized with bluemonday before it reaches the page.
package html

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formwizard/pkg/fields"
	"github.com/goliatone/go-formwizard/pkg/render/template"
	"github.com/goliatone/go-formwizard/pkg/render/template/pongo"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ContentType is the media type of rendered pages.
const ContentType = "text/html; charset=utf-8"

//go:embed templates/*.tpl
var embedded embed.FS

// Templates returns the built-in template files.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Sprintf("html: embedded templates: %v", err))
	}
	return sub
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithTemplateRenderer replaces the pongo2 engine. The renderer must provide
// the page, field and error templates.
func WithTemplateRenderer(engine template.TemplateRenderer) Option {
	return func(r *Renderer) {
		if engine != nil {
			r.engine = engine
		}
	}
}

// WithTemplatesDir overlays templates from dir on the built-in set.
func WithTemplatesDir(dir string) Option {
	return func(r *Renderer) {
		r.dir = strings.TrimSpace(dir)
	}
}

// WithDescriptionPolicy sets the policy applied to field descriptions.
// Defaults to bluemonday.UGCPolicy.
func WithDescriptionPolicy(policy *bluemonday.Policy) Option {
	return func(r *Renderer) {
		if policy != nil {
			r.rich = policy
		}
	}
}

// Renderer writes wizard pages.
type Renderer struct {
	engine template.TemplateRenderer
	dir    string
	rich   *bluemonday.Policy
	plain  *bluemonday.Policy
}

// New constructs a Renderer backed by the embedded templates.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		rich:  bluemonday.UGCPolicy(),
		plain: bluemonday.StrictPolicy(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		engineOpts := []pongo.Option{pongo.WithFS(Templates()), pongo.WithSetName("formwizard-html")}
		if r.dir != "" {
			engineOpts = append(engineOpts, pongo.WithBaseDir(r.dir))
		}
		engine, err := pongo.New(engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("html: %w", err)
		}
		r.engine = engine
	}
	return r, nil
}

// RenderPage writes view. basePath prefixes page links and form actions,
// typically "/wizards/{form}".
func (r *Renderer) RenderPage(w io.Writer, basePath string, view wizard.PageView) error {
	if w == nil {
		return errors.New("html: writer is nil")
	}
	data := map[string]any{
		"base":   strings.TrimRight(basePath, "/"),
		"page":   view,
		"banner": r.plain.Sanitize(view.Banner),
		"fields": r.fieldData(view.Fields),
	}
	if _, err := r.engine.RenderTemplate("page", data, w); err != nil {
		return fmt.Errorf("html: render page %q: %w", view.Key, err)
	}
	return nil
}

// ErrorPage describes a page shown when the wizard cannot be constructed,
// for example because the schema fetch failed.
type ErrorPage struct {
	Wizard   string
	Title    string
	Message  string
	Retry    string
	Fallback string
}

// RenderError writes an error page with retry and exit links.
func (r *Renderer) RenderError(w io.Writer, page ErrorPage) error {
	if w == nil {
		return errors.New("html: writer is nil")
	}
	data := map[string]any{
		"wizard":   page.Wizard,
		"title":    page.Title,
		"message":  r.plain.Sanitize(page.Message),
		"retry":    page.Retry,
		"fallback": page.Fallback,
	}
	if _, err := r.engine.RenderTemplate("error", data, w); err != nil {
		return fmt.Errorf("html: render error page: %w", err)
	}
	return nil
}

func (r *Renderer) fieldData(views []wizard.FieldView) []map[string]any {
	out := make([]map[string]any, 0, len(views))
	for _, view := range views {
		options := make([]map[string]any, 0, len(view.Options))
		for _, opt := range view.Options {
			options = append(options, map[string]any{
				"label":    opt.Label,
				"value":    opt.Value,
				"selected": opt.Selected,
			})
		}
		attrs := make(map[string]any, len(view.Attributes))
		for key, value := range view.Attributes {
			attrs[key] = value
		}
		out = append(out, map[string]any{
			"name":         view.Name,
			"control":      view.Control,
			"label":        view.Label,
			"placeholder":  view.Placeholder,
			"display":      view.Display,
			"required":     view.Required,
			"attributes":   attrs,
			"options":      options,
			"input_type":   inputType(view.Control),
			"reference_id": referenceID(view.Value),
			"description":  r.rich.Sanitize(view.Description),
			"error":        r.plain.Sanitize(view.Error),
		})
	}
	return out
}

func inputType(control string) string {
	switch control {
	case fields.ControlDatePicker:
		return "date"
	case fields.ControlNumber:
		return "number"
	default:
		return "text"
	}
}

func referenceID(value any) string {
	switch v := value.(type) {
	case map[string]any:
		if id, ok := v["id"]; ok && id != nil {
			return fmt.Sprint(id)
		}
	case string:
		return v
	}
	return ""
}

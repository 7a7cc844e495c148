package wizard

import (
	"reflect"

	"github.com/goliatone/go-formwizard/pkg/fields"
)

// PageDescriptor is the static configuration of one wizard step.
type PageDescriptor struct {
	Key   string `yaml:"key" json:"key"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	// Fields lists the owned schema field names in display order.
	Fields []string `yaml:"fields" json:"fields"`
	// Required marks fields mandatory on this page on top of the schema's
	// x-always-required flag.
	Required []string `yaml:"required,omitempty" json:"required,omitempty"`
	// Validate adds cross-field rules. Its errors are merged with the field
	// validators' errors.
	Validate func(values Record) FieldErrors `yaml:"-" json:"-"`
}

// Page is a built PageDescriptor: the fields it owns and its validation.
type Page struct {
	desc     PageDescriptor
	fields   []fields.Field
	owns     map[string]struct{}
	required map[string]struct{}
}

func newPage(desc PageDescriptor, builder *fields.Builder) *Page {
	p := &Page{
		desc:     desc,
		owns:     make(map[string]struct{}, len(desc.Fields)),
		required: make(map[string]struct{}, len(desc.Required)),
	}
	for _, name := range desc.Required {
		p.required[name] = struct{}{}
	}
	p.fields = builder.BuildAll(desc.Fields, func(name string) bool {
		_, ok := p.required[name]
		return ok
	})
	for _, field := range p.fields {
		p.owns[field.Name()] = struct{}{}
	}
	return p
}

// Key returns the route key of the page.
func (p *Page) Key() string { return p.desc.Key }

// Title returns the page heading.
func (p *Page) Title() string { return p.desc.Title }

// Descriptor returns the configuration the page was built from.
func (p *Page) Descriptor() PageDescriptor { return p.desc }

// Fields returns the page's fields, unknown names already omitted.
func (p *Page) Fields() []fields.Field {
	return append([]fields.Field(nil), p.fields...)
}

// FieldNames returns the owned field names in display order.
func (p *Page) FieldNames() []string {
	names := make([]string, 0, len(p.fields))
	for _, field := range p.fields {
		names = append(names, field.Name())
	}
	return names
}

// Owns reports whether name is one of the page's fields.
func (p *Page) Owns(name string) bool {
	_, ok := p.owns[name]
	return ok
}

// Validate runs every field validator and the descriptor's cross-field rule.
// It returns nil when the values are acceptable.
func (p *Page) Validate(values Record) FieldErrors {
	errs := make(FieldErrors)
	for _, field := range p.fields {
		if msg := field.Validate(values[field.Name()]); msg != "" {
			errs[field.Name()] = msg
		}
	}
	if p.desc.Validate != nil {
		for name, msg := range p.desc.Validate(values) {
			if msg == "" {
				continue
			}
			if _, exists := errs[name]; !exists {
				errs[name] = msg
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// PageState is what a host knows about a page while the user edits it.
type PageState struct {
	// Initial holds the values the page was opened with.
	Initial Record
	// Values holds the values as currently edited.
	Values     Record
	Submitting bool
}

// Pristine reports whether no owned value differs from its initial value.
// Empty values compare equal regardless of representation.
func (p *Page) Pristine(state PageState) bool {
	for _, field := range p.fields {
		name := field.Name()
		before, after := state.Initial[name], state.Values[name]
		if fields.IsEmpty(before) && fields.IsEmpty(after) {
			continue
		}
		if !reflect.DeepEqual(before, after) {
			return false
		}
	}
	return true
}

// CanSubmit is false while the page is pristine, submitting, or invalid. It
// is an affordance only; the controller validates again on submit.
func (p *Page) CanSubmit(state PageState) bool {
	if state.Submitting || p.Pristine(state) {
		return false
	}
	return len(p.Validate(state.Values)) == 0
}

// CanReset is false while the page is pristine or submitting.
func (p *Page) CanReset(state PageState) bool {
	return !state.Submitting && !p.Pristine(state)
}

func (p *Page) restrict(values Record) Record {
	out := make(Record, len(p.fields))
	for _, field := range p.fields {
		if value, ok := values[field.Name()]; ok {
			out[field.Name()] = value
		}
	}
	return out
}

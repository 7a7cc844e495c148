package definition

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Form is the static configuration of one wizard: where its schema comes
// from, the ordered pages, and the endpoints used to load and submit the
// accumulated record.
type Form struct {
	Key      string
	Title    string
	Fallback string
	Schema   SchemaRef
	Pages    []wizard.PageDescriptor
	Submit   Endpoint
	Load     Endpoint
	// Params names the host parameters captured when a session starts.
	Params []string
	// Inject copies host parameters into the submitted record, keyed by
	// record field.
	Inject map[string]string
	// Source is the file the form was read from.
	Source string
}

// SchemaRef selects the schema of a form. Inline wins over Source; Source
// with Definition names a definition inside an API document; Definition
// alone is resolved by the host's schema fetcher.
type SchemaRef struct {
	Source     string
	Definition string
	// Inline holds the embedded schema as YAML.
	Inline []byte
}

// Endpoint is a record collection path. Placeholders such as
// {service_member_id} are expanded from session parameters.
type Endpoint struct {
	URL string `yaml:"url" json:"url"`
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Placeholders returns the parameter names referenced by the endpoint.
func (e Endpoint) Placeholders() []string {
	matches := placeholderPattern.FindAllStringSubmatch(e.URL, -1)
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match[1])
	}
	return out
}

// Expand substitutes placeholders with path-escaped parameter values.
func (e Endpoint) Expand(params map[string]string) (string, error) {
	var missing []string
	expanded := placeholderPattern.ReplaceAllStringFunc(e.URL, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := params[name]
		if !ok || value == "" {
			missing = append(missing, name)
			return token
		}
		return url.PathEscape(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("definition: endpoint %q missing parameters %s", e.URL, strings.Join(missing, ", "))
	}
	return expanded, nil
}

// Descriptors returns copies of the page descriptors.
func (f Form) Descriptors() []wizard.PageDescriptor {
	out := make([]wizard.PageDescriptor, len(f.Pages))
	for idx, page := range f.Pages {
		page.Fields = append([]string(nil), page.Fields...)
		page.Required = append([]string(nil), page.Required...)
		out[idx] = page
	}
	return out
}

// Transform returns a submit transform that injects params into the record,
// or nil when the form injects nothing.
func (f Form) Transform(params map[string]string) func(wizard.Record) wizard.Record {
	if len(f.Inject) == 0 {
		return nil
	}
	return func(record wizard.Record) wizard.Record {
		for field, param := range f.Inject {
			if value, ok := params[param]; ok {
				record[field] = value
			}
		}
		return record
	}
}

// Check reports page fields and required names that the resolved schema
// does not define. The wizard tolerates these at runtime by omitting the
// field; Check surfaces them for tooling.
func (f Form) Check(s schema.Schema) []error {
	var issues []error
	for _, page := range f.Pages {
		owned := make(map[string]struct{}, len(page.Fields))
		for _, name := range page.Fields {
			owned[name] = struct{}{}
			if !s.Has(name) {
				issues = append(issues, fmt.Errorf("definition: form %q page %q field %q is not in the schema", f.Key, page.Key, name))
			}
		}
		for _, name := range page.Required {
			if _, ok := owned[name]; !ok {
				issues = append(issues, fmt.Errorf("definition: form %q page %q requires %q which the page does not own", f.Key, page.Key, name))
			}
		}
	}
	return issues
}

// Catalog indexes forms by key.
type Catalog struct {
	forms map[string]Form
}

// NewCatalog builds a catalog, rejecting duplicate keys.
func NewCatalog(forms ...Form) (*Catalog, error) {
	c := &Catalog{forms: make(map[string]Form, len(forms))}
	if err := c.Add(forms...); err != nil {
		return nil, err
	}
	return c, nil
}

// Add registers forms.
func (c *Catalog) Add(forms ...Form) error {
	for _, form := range forms {
		if existing, ok := c.forms[form.Key]; ok {
			return fmt.Errorf("definition: form %q defined in both %s and %s", form.Key, existing.Source, form.Source)
		}
		c.forms[form.Key] = form
	}
	return nil
}

// Lookup returns the form registered under key.
func (c *Catalog) Lookup(key string) (Form, bool) {
	if c == nil {
		return Form{}, false
	}
	form, ok := c.forms[key]
	return form, ok
}

// Keys returns the form keys in sorted order.
func (c *Catalog) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.forms))
	for key := range c.forms {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of forms.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.forms)
}

package httpwizard

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/fields"
	"github.com/goliatone/go-formwizard/pkg/schema"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// displaySuffix names the visible text input paired with a reference's
// hidden id input.
const displaySuffix = "__display"

// pageValues converts posted form values into a page record. Values that do
// not coerce are kept as trimmed text so page validation reports them inline.
// A reference whose id is unchanged keeps its current value.
func pageValues(pageFields []fields.Field, form url.Values, current wizard.Record) wizard.Record {
	values := make(wizard.Record, len(pageFields))
	for _, field := range pageFields {
		name := field.Name()
		raw, posted := form[name]
		if !posted {
			values[name] = nil
			continue
		}
		text := ""
		if len(raw) > 0 {
			text = raw[0]
		}

		if field.Kind() == schema.KindReference {
			values[name] = referenceValue(field, text, form.Get(name+displaySuffix), current[name])
			continue
		}

		value, err := field.Coerce(text)
		if err != nil {
			values[name] = strings.TrimSpace(text)
			continue
		}
		values[name] = value
	}
	return values
}

func referenceValue(field fields.Field, id, display string, current any) any {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	if existing, ok := current.(map[string]any); ok {
		if existingID, ok := existing["id"]; ok && existingID != nil && fmt.Sprint(existingID) == id {
			return existing
		}
	}
	value, err := field.Coerce(id)
	if err != nil {
		return id
	}
	if record, ok := value.(map[string]any); ok {
		if display = strings.TrimSpace(display); display != "" {
			if _, named := record["name"]; !named {
				record["name"] = display
			}
		}
	}
	return value
}

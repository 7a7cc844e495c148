package definition

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

type rawFile struct {
	Forms []rawForm `yaml:"forms"`
}

type rawForm struct {
	Key      string                  `yaml:"key"`
	Title    string                  `yaml:"title"`
	Fallback string                  `yaml:"fallback"`
	Schema   rawSchema               `yaml:"schema"`
	Pages    []wizard.PageDescriptor `yaml:"pages"`
	Submit   Endpoint                `yaml:"submit"`
	Load     Endpoint                `yaml:"load"`
	Params   []string                `yaml:"params"`
	Inject   map[string]string       `yaml:"inject"`
}

type rawSchema struct {
	Source     string    `yaml:"source"`
	Definition string    `yaml:"definition"`
	Inline     yaml.Node `yaml:"inline"`
}

// LoadFS walks fsys and loads every .yaml, .yml and .json definition file.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	if fsys == nil {
		return nil, fmt.Errorf("definition: filesystem is nil")
	}
	catalog := &Catalog{forms: make(map[string]Form)}
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDefinitionFile(path) {
			return nil
		}
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("definition: read %s: %w", path, err)
		}
		forms, err := Parse(data, path)
		if err != nil {
			return err
		}
		return catalog.Add(forms...)
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// LoadFiles loads definition files and directories from the local disk.
func LoadFiles(paths ...string) (*Catalog, error) {
	catalog := &Catalog{forms: make(map[string]Form)}
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("definition: %w", err)
		}
		if info.IsDir() {
			dir, err := LoadFS(os.DirFS(path))
			if err != nil {
				return nil, err
			}
			for _, key := range dir.Keys() {
				form, _ := dir.Lookup(key)
				form.Source = filepath.Join(path, form.Source)
				if err := catalog.Add(form); err != nil {
					return nil, err
				}
			}
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("definition: read %s: %w", path, err)
		}
		forms, err := Parse(data, path)
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(forms...); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// Parse decodes one definition document. JSON documents are accepted since
// they are valid YAML.
func Parse(data []byte, source string) ([]Form, error) {
	var doc rawFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("definition: parse %s: invalid JSON or YAML: %w", source, err)
	}
	if len(doc.Forms) == 0 {
		return nil, fmt.Errorf("definition: file %s defines no forms", source)
	}

	forms := make([]Form, 0, len(doc.Forms))
	seen := make(map[string]struct{}, len(doc.Forms))
	for idx, raw := range doc.Forms {
		form, err := normaliseForm(raw, source)
		if err != nil {
			return nil, fmt.Errorf("%w (form %d)", err, idx)
		}
		if _, dup := seen[form.Key]; dup {
			return nil, fmt.Errorf("definition: file %s defines form %q more than once", source, form.Key)
		}
		seen[form.Key] = struct{}{}
		forms = append(forms, form)
	}
	return forms, nil
}

func normaliseForm(raw rawForm, source string) (Form, error) {
	key := strings.TrimSpace(raw.Key)
	if key == "" {
		return Form{}, fmt.Errorf("definition: file %s has a form without a key", source)
	}
	form := Form{
		Key:      key,
		Title:    strings.TrimSpace(raw.Title),
		Fallback: strings.TrimSpace(raw.Fallback),
		Submit:   Endpoint{URL: strings.TrimSpace(raw.Submit.URL)},
		Load:     Endpoint{URL: strings.TrimSpace(raw.Load.URL)},
		Source:   source,
	}

	ref, err := normaliseSchema(raw.Schema)
	if err != nil {
		return Form{}, fmt.Errorf("definition: form %q (file %s): %w", key, source, err)
	}
	form.Schema = ref

	if len(raw.Pages) == 0 {
		return Form{}, fmt.Errorf("definition: form %q (file %s) has no pages", key, source)
	}
	pageKeys := make(map[string]struct{}, len(raw.Pages))
	for idx, page := range raw.Pages {
		page.Key = strings.TrimSpace(page.Key)
		if page.Key == "" {
			return Form{}, fmt.Errorf("definition: form %q (file %s) page %d has no key", key, source, idx)
		}
		if _, dup := pageKeys[page.Key]; dup {
			return Form{}, fmt.Errorf("definition: form %q (file %s) defines page %q twice", key, source, page.Key)
		}
		if len(page.Fields) == 0 {
			return Form{}, fmt.Errorf("definition: form %q (file %s) page %q lists no fields", key, source, page.Key)
		}
		pageKeys[page.Key] = struct{}{}
		form.Pages = append(form.Pages, page)
	}

	declared := make(map[string]struct{}, len(raw.Params))
	for _, param := range raw.Params {
		param = strings.TrimSpace(param)
		if param == "" {
			return Form{}, fmt.Errorf("definition: form %q (file %s) declares an empty param", key, source)
		}
		declared[param] = struct{}{}
		form.Params = append(form.Params, param)
	}
	for _, endpoint := range []Endpoint{form.Submit, form.Load} {
		for _, name := range endpoint.Placeholders() {
			if _, ok := declared[name]; !ok {
				return Form{}, fmt.Errorf("definition: form %q (file %s) endpoint %q uses undeclared param %q", key, source, endpoint.URL, name)
			}
		}
	}
	if len(raw.Inject) > 0 {
		form.Inject = make(map[string]string, len(raw.Inject))
		for field, param := range raw.Inject {
			if _, ok := declared[param]; !ok {
				return Form{}, fmt.Errorf("definition: form %q (file %s) injects undeclared param %q", key, source, param)
			}
			form.Inject[field] = param
		}
	}
	return form, nil
}

func normaliseSchema(raw rawSchema) (SchemaRef, error) {
	ref := SchemaRef{
		Source:     strings.TrimSpace(raw.Source),
		Definition: strings.TrimSpace(raw.Definition),
	}
	if !raw.Inline.IsZero() {
		if ref.Source != "" {
			return SchemaRef{}, fmt.Errorf("schema declares both inline and source")
		}
		data, err := yaml.Marshal(&raw.Inline)
		if err != nil {
			return SchemaRef{}, fmt.Errorf("inline schema: %w", err)
		}
		ref.Inline = data
		return ref, nil
	}
	if ref.Source == "" && ref.Definition == "" {
		return SchemaRef{}, fmt.Errorf("schema needs inline, source, or definition")
	}
	return ref, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

package pongo_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formwizard/pkg/render/template/pongo"
)

func newEngine(t *testing.T) *pongo.Engine {
	t.Helper()
	engine, err := pongo.New(pongo.WithFS(fstest.MapFS{
		"hello.tpl":      {Data: []byte(`Hello {{ name }}!`)},
		"use-global.tpl": {Data: []byte(`env={{ settings.env }}`)},
		"use-filter.tpl": {Data: []byte(`{{ name|shout_test }}`)},
		"step.tpl":       {Data: []byte(`{% for step in steps %}[{{ step.key }}{% if step.current %}*{% endif %}]{% endfor %}`)},
	}))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplate(t *testing.T) {
	engine := newEngine(t)

	var buf bytes.Buffer
	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello Ada!" || buf.String() != got {
		t.Fatalf("unexpected output %q / %q", got, buf.String())
	}
}

type step struct {
	Key     string `json:"key"`
	Current bool   `json:"current"`
}

func TestEngine_StructsUseJSONNames(t *testing.T) {
	engine := newEngine(t)
	got, err := engine.RenderTemplate("step.tpl", struct {
		Steps []step `json:"steps"`
	}{Steps: []step{{Key: "orders", Current: true}, {Key: "upload"}}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "[orders*][upload]" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_GlobalContext(t *testing.T) {
	engine := newEngine(t)
	if err := engine.GlobalContext(map[string]any{"settings": map[string]any{"env": "staging"}}); err != nil {
		t.Fatalf("global context: %v", err)
	}
	got, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "env=staging" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_RegisterFilter(t *testing.T) {
	engine := newEngine(t)
	err := engine.RegisterFilter("shout_test", func(input any, _ any) (any, error) {
		return fmt.Sprintf("%s!", strings.ToUpper(fmt.Sprint(input))), nil
	})
	if err != nil {
		t.Fatalf("register filter: %v", err)
	}
	if err := engine.RegisterFilter("shout_test", func(any, any) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate filter error")
	}

	got, err := engine.RenderTemplate("use-filter", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "ADA!" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_RenderStringEscapes(t *testing.T) {
	engine := newEngine(t)
	got, err := engine.RenderString(`<p>{{ msg }}</p>`, map[string]any{"msg": "<b>x</b>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "<p>&lt;b&gt;x&lt;/b&gt;</p>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEngine_RequiresLoader(t *testing.T) {
	if _, err := pongo.New(); err == nil {
		t.Fatalf("expected error without loaders")
	}
	engine := newEngine(t)
	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected missing template error")
	}
}

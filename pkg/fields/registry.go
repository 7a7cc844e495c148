package fields

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/schema"
)

// Built-in control identifiers exposed by the registry.
const (
	ControlInput       = "input"
	ControlDatePicker  = "datepicker"
	ControlMaskedInput = "masked-input"
	ControlNumber      = "number"
	ControlYesNo       = "yes-no"
	ControlSelect      = "select"
	ControlSearchBox   = "search-box"
)

// Matcher decides whether a control should handle the supplied property.
type Matcher func(prop schema.Property) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry selects controls for properties based on the x-widget hint or
// registered matchers. Higher priority wins; ties fall back to registration
// order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry constructs a registry with the built-in matchers registered.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher under name. Higher priority values take precedence.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the control name for prop. An explicit x-widget hint is
// honoured before matcher evaluation.
func (r *Registry) Resolve(prop schema.Property) (string, bool) {
	if explicit := strings.TrimSpace(prop.Widget); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	if len(r.rules) == 0 {
		r.mu.RUnlock()
		return "", false
	}
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(prop) {
			return entry.name, true
		}
	}
	return "", false
}

func kindIs(kind schema.Kind) Matcher {
	return func(prop schema.Property) bool {
		return schema.KindOf(prop) == kind
	}
}

func (r *Registry) registerBuiltins() {
	r.Register(ControlSelect, 90, kindIs(schema.KindEnum))
	r.Register(ControlDatePicker, 80, kindIs(schema.KindDate))
	r.Register(ControlMaskedInput, 80, kindIs(schema.KindZip))
	r.Register(ControlYesNo, 70, kindIs(schema.KindBoolean))
	r.Register(ControlNumber, 70, kindIs(schema.KindInteger))
	r.Register(ControlSearchBox, 60, kindIs(schema.KindReference))
}

package adapter

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formbind/pkg/schema"
)

// Built-in adapter identifiers, matched by leaf kind.
const (
	NameTextInput   = "text-input"
	NameNumberInput = "number-input"
	NameToggle      = "toggle"
	NameSelect      = "select"
	NameMultiSelect = "multiselect"
)

// Matcher decides whether a named adapter should handle a leaf.
type Matcher func(leaf schema.Leaf) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry resolves the adapter for each leaf. An explicit Leaf.Adapter name
// wins; otherwise matchers run by descending priority with ties broken by
// registration order. Names without a registered Adapter fall back to the
// registry's default.
type Registry struct {
	mu         sync.RWMutex
	rules      []rule
	adapters   map[string]Adapter
	containers map[string]Container
	fallback   Adapter
	container  Container
}

// NewRegistry constructs a registry with the built-in kind matchers. Every
// built-in name resolves to Passthrough until the host registers a real
// adapter for it.
func NewRegistry() *Registry {
	reg := &Registry{
		adapters:   make(map[string]Adapter),
		containers: make(map[string]Container),
		fallback:   Passthrough,
		container:  GroupContainer,
	}
	reg.registerBuiltins()
	return reg
}

// Register binds an adapter to a name. Duplicate names return an error.
func (r *Registry) Register(name string, a Adapter) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("adapter: name is required")
	}
	if a == nil {
		return fmt.Errorf("adapter: adapter %q is nil", trimmed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[trimmed]; exists {
		return fmt.Errorf("adapter: %q already registered", trimmed)
	}
	r.adapters[trimmed] = a
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, a Adapter) {
	if err := r.Register(name, a); err != nil {
		panic(err)
	}
}

// RegisterContainer binds a layout container to a name.
func (r *Registry) RegisterContainer(name string, c Container) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || c == nil {
		return fmt.Errorf("adapter: container name and implementation are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers[trimmed] = c
	return nil
}

// Match adds a matcher for name with the given priority.
func (r *Registry) Match(name string, priority int, matcher Matcher) {
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

// SetFallback replaces the adapter used when nothing else resolves.
func (r *Registry) SetFallback(a Adapter) {
	if a == nil {
		return
	}
	r.mu.Lock()
	r.fallback = a
	r.mu.Unlock()
}

// Name returns the adapter name chosen for leaf.
func (r *Registry) Name(leaf schema.Leaf) (string, bool) {
	if explicit := strings.TrimSpace(leaf.Adapter); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(leaf) {
			return entry.name, true
		}
	}
	return "", false
}

// Resolve returns the adapter for leaf, never nil.
func (r *Registry) Resolve(leaf schema.Leaf) Adapter {
	if r == nil {
		return Passthrough
	}
	name, _ := r.Name(leaf)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.adapters[name]; ok {
		return a
	}
	return r.fallback
}

// Container returns the container registered under name, or the default.
func (r *Registry) Container(name string) Container {
	if r == nil {
		return GroupContainer
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.containers[strings.TrimSpace(name)]; ok {
		return c
	}
	return r.container
}

func (r *Registry) registerBuiltins() {
	r.Match(NameToggle, 90, func(leaf schema.Leaf) bool {
		return leaf.Kind == schema.KindBoolean
	})
	r.Match(NameMultiSelect, 80, func(leaf schema.Leaf) bool {
		return leaf.Kind == schema.KindMultiSelect
	})
	r.Match(NameSelect, 70, func(leaf schema.Leaf) bool {
		return leaf.Kind == schema.KindSelect || hasOptions(leaf)
	})
	r.Match(NameNumberInput, 60, func(leaf schema.Leaf) bool {
		return leaf.Kind == schema.KindNumber
	})
	r.Match(NameTextInput, 10, func(leaf schema.Leaf) bool {
		return leaf.Kind == schema.KindText || leaf.Kind == ""
	})
}

func hasOptions(leaf schema.Leaf) bool {
	if leaf.Hints == nil {
		return false
	}
	return strings.TrimSpace(leaf.Hints["options"]) != ""
}

package adapter

import "github.com/goliatone/go-formbind/pkg/schema"

// ChangeOptions accompany an edit reported by an adapter.
type ChangeOptions struct {
	// Immediate skips the debounce window and commits right away, e.g. for
	// toggles or selections where there is no typing burst.
	Immediate bool
}

// Props is everything a stateless leaf adapter needs to draw one field. The
// engine owns the state; adapters only read it and report edits through the
// callbacks, synchronously, without debouncing or validating themselves.
type Props struct {
	Name  string
	Kind  schema.Kind
	Label string
	Hints map[string]string

	Value    any
	Disabled bool
	Readonly bool
	// Invalid is empty until the field has been interacted with.
	Invalid string
	Dirty   bool
	Loading bool
	Visible bool

	OnChange func(value any, opts ChangeOptions)
	// OnFocus marks the field focused. When probe is non-nil the engine polls
	// it and treats a false result as focus loss.
	OnFocus func(probe func() bool)
	OnBlur  func()
}

// Adapter renders a leaf from its managed props into whatever the host draws
// with.
type Adapter interface {
	Render(props Props) any
}

// AdapterFunc adapts a function into an Adapter.
type AdapterFunc func(props Props) any

// Render calls the underlying function.
func (fn AdapterFunc) Render(props Props) any {
	return fn(props)
}

// Container renders an already-rendered list of children for a layout node.
type Container interface {
	Render(id string, children []any, hints map[string]string) any
}

// ContainerFunc adapts a function into a Container.
type ContainerFunc func(id string, children []any, hints map[string]string) any

// Render calls the underlying function.
func (fn ContainerFunc) Render(id string, children []any, hints map[string]string) any {
	return fn(id, children, hints)
}

// Group is what the default container produces.
type Group struct {
	ID       string
	Hints    map[string]string
	Children []any
}

// Passthrough returns the props unchanged; useful for headless hosts and
// tests that inspect state rather than pixels.
var Passthrough = AdapterFunc(func(props Props) any { return props })

// GroupContainer wraps children in a Group.
var GroupContainer = ContainerFunc(func(id string, children []any, hints map[string]string) any {
	return Group{ID: id, Hints: hints, Children: children}
})

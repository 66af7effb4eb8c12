package schema

import (
	"context"
	"time"

	"github.com/goliatone/go-formbind/pkg/deep"
)

// Kind is the simplified enum for leaf value kinds. It decides the baseline
// value a leaf is seeded with and which adapter the registry picks.
type Kind string

const (
	KindText        Kind = "text"
	KindNumber      Kind = "number"
	KindBoolean     Kind = "boolean"
	KindSelect      Kind = "select"
	KindMultiSelect Kind = "multiselect"
	KindCustom      Kind = "custom"
)

// NodeType discriminates the Descriptor union.
type NodeType int

const (
	NodeLeaf NodeType = iota + 1
	NodeLayout
)

func (n NodeType) String() string {
	switch n {
	case NodeLeaf:
		return "leaf"
	case NodeLayout:
		return "layout"
	default:
		return "invalid"
	}
}

// Flag is a boolean predicate evaluated against the shared data and payload.
type Flag func(data deep.Data, payload any) bool

// Check returns a human readable reason when data is invalid, or "".
type Check func(data deep.Data, payload any) string

// ComputeFunc derives a leaf's displayed value instead of reading its path.
type ComputeFunc func(data deep.Data, payload any) (any, error)

// AsyncComputeFunc is a derivation that may block; the engine runs it off the
// walker and shows the leaf as loading meanwhile.
type AsyncComputeFunc func(ctx context.Context, data deep.Data, payload any) (any, error)

// TransformFunc rewrites an edited value before it is validated and committed.
type TransformFunc func(value any) any

// DebounceOptions tunes how a leaf batches edits. A nil value on the leaf uses
// the engine defaults.
type DebounceOptions struct {
	Wait     time.Duration
	MaxWait  time.Duration
	Leading  bool
	Trailing *bool
}

// Leaf binds one dot-path of the data object to one adapter.
type Leaf struct {
	Name    string
	Kind    Kind
	Label   string
	Default any

	IsVisible  Flag
	IsDisabled Flag
	IsReadonly Flag
	IsInvalid  Check

	Compute      ComputeFunc
	ComputeAsync AsyncComputeFunc
	Transform    TransformFunc

	Debounce  *DebounceOptions
	Immediate bool

	Adapter string
	Hints   map[string]string
}

// Layout arranges children without binding data. A non-nil IsVisible makes it
// conditional: when false its children are unmounted.
type Layout struct {
	ID        string
	Children  []Descriptor
	IsVisible Flag
	Container string
	Hints     map[string]string
}

// Conditional reports whether the layout carries its own visibility rule.
func (l Layout) Conditional() bool { return l.IsVisible != nil }

// Descriptor is a node of the schema tree: exactly one of Leaf or Layout is
// set, as named by Node.
type Descriptor struct {
	Node   NodeType
	Leaf   *Leaf
	Layout *Layout
}

// LeafNode wraps a leaf.
func LeafNode(leaf Leaf) Descriptor {
	return Descriptor{Node: NodeLeaf, Leaf: &leaf}
}

// LayoutNode wraps a layout.
func LayoutNode(layout Layout) Descriptor {
	return Descriptor{Node: NodeLayout, Layout: &layout}
}

// Group is shorthand for an unconditional layout.
func Group(id string, children ...Descriptor) Descriptor {
	return LayoutNode(Layout{ID: id, Children: children})
}

// When is shorthand for a conditional layout.
func When(id string, visible Flag, children ...Descriptor) Descriptor {
	return LayoutNode(Layout{ID: id, IsVisible: visible, Children: children})
}

package engine

import "github.com/goliatone/go-formbind/pkg/schema"

// scope counts outstanding hydrations for one subtree. It starts at the span
// of its children (at least one) and, when it reaches zero, reports its whole
// weight to the parent exactly once. Scopes are only touched from dispatcher
// tasks.
type scope struct {
	path      string
	parent    *scope
	weight    int
	remaining int
	done      bool
	onDone    func()
}

func newScope(path string, parent *scope, units int) *scope {
	if units < 1 {
		units = 1
	}
	return &scope{
		path:      path,
		parent:    parent,
		weight:    units,
		remaining: units,
	}
}

// span is what nodes report to their scope: one per leaf, and for each
// layout the span of its own children, at least one.
func span(nodes []schema.Descriptor) int {
	total := 0
	for _, node := range nodes {
		switch node.Node {
		case schema.NodeLeaf:
			total++
		case schema.NodeLayout:
			total += max(span(node.Layout.Children), 1)
		}
	}
	return total
}

// report marks n units of the subtree as hydrated.
func (s *scope) report(n int) {
	if s == nil || s.done || n <= 0 {
		return
	}
	s.remaining -= n
	if s.remaining > 0 {
		return
	}
	s.remaining = 0
	s.done = true
	if s.parent != nil {
		s.parent.report(s.weight)
	}
	if s.onDone != nil {
		s.onDone()
	}
}

// finish reports everything still outstanding, used for subtrees that render
// nothing.
func (s *scope) finish() {
	if s == nil || s.done {
		return
	}
	s.report(s.remaining)
}

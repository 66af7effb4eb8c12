package engine

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// mounted is the live counterpart of a descriptor.
type mounted struct {
	desc  schema.Descriptor
	path  string
	ctrl  *field.Controller
	scope *scope
	shown bool
	kids  []*mounted
}

// Node is a diagnostic view of the mounted tree.
type Node struct {
	Path     string
	Type     schema.NodeType
	ID       string
	Name     string
	Shown    bool
	State    *field.State
	Children []Node
}

func childPath(prefix string, idx int, desc schema.Descriptor) string {
	segment := strconv.Itoa(idx)
	if desc.Node == schema.NodeLayout && desc.Layout != nil && desc.Layout.ID != "" {
		segment = desc.Layout.ID
	}
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// mountAll mounts every node under parent. Callers hold treeMu and run on the
// dispatcher.
func (e *Engine) mountAll(nodes []schema.Descriptor, prefix string, parent *scope, data deep.Data) []*mounted {
	out := make([]*mounted, 0, len(nodes))
	for idx, desc := range nodes {
		out = append(out, e.mount(desc, childPath(prefix, idx, desc), parent, data))
	}
	return out
}

func (e *Engine) mount(desc schema.Descriptor, path string, parent *scope, data deep.Data) *mounted {
	m := &mounted{desc: desc, path: path, shown: true}
	if desc.Node == schema.NodeLeaf {
		m.ctrl = e.newController(*desc.Leaf, parent)
		e.mu.Lock()
		e.fields[desc.Leaf.Name] = m.ctrl
		e.mu.Unlock()
		m.ctrl.Sync(data)
		return m
	}

	layout := desc.Layout
	units := span(layout.Children)
	m.scope = newScope(path, parent, units)
	if layout.Conditional() && !layout.IsVisible(data, e.Payload()) {
		m.shown = false
		m.scope.finish()
		return m
	}
	m.kids = e.mountAll(layout.Children, path, m.scope, data)
	if units == 0 {
		m.scope.finish()
	}
	return m
}

func (e *Engine) newController(leaf schema.Leaf, parent *scope) *field.Controller {
	cfg := e.cfg
	return field.New(leaf, &leafHost{engine: e, scope: parent},
		field.WithAdapter(e.registry.Resolve(leaf)),
		field.WithScheduler(cfg.Scheduler),
		field.WithDebounce(cfg.Debounce),
		field.WithReadonlyUntilFocus(cfg.ReadonlyUntilFocus),
		field.WithFocusPoll(cfg.FocusPoll),
		field.WithLogger(e.logger),
		field.WithComputeErrorHandler(cfg.OnComputeError),
		field.WithContext(e.ctx),
	)
}

// update propagates a data change, remounting or unmounting conditional
// layouts as their rule flips. With force, leaves re-run even when data is
// the reference they already saw.
func (e *Engine) update(nodes []*mounted, data deep.Data, force bool) {
	payload := e.Payload()
	for _, m := range nodes {
		if m.ctrl != nil {
			if force {
				m.ctrl.Refresh()
			}
			m.ctrl.Sync(data)
			continue
		}

		layout := m.desc.Layout
		if layout.Conditional() {
			visible := layout.IsVisible(data, payload)
			switch {
			case visible && !m.shown:
				e.logger.Debug("layout shown", zap.String("path", m.path))
				m.shown = true
				m.kids = e.mountAll(layout.Children, m.path, m.scope, data)
				continue
			case !visible && m.shown:
				e.logger.Debug("layout hidden", zap.String("path", m.path))
				e.unmount(m.kids)
				m.kids = nil
				m.shown = false
				m.scope.finish()
				continue
			case !visible:
				continue
			}
		}
		e.update(m.kids, data, force)
	}
}

// unmount closes every controller below nodes.
func (e *Engine) unmount(nodes []*mounted) {
	for _, m := range nodes {
		if m.ctrl != nil {
			m.ctrl.Close()
			e.mu.Lock()
			if e.fields[m.ctrl.Name()] == m.ctrl {
				delete(e.fields, m.ctrl.Name())
			}
			e.mu.Unlock()
			continue
		}
		e.unmount(m.kids)
	}
}

// render draws nodes bottom-up. Hidden leaves and hidden layouts are dropped.
func (e *Engine) render(nodes []*mounted) []any {
	out := make([]any, 0, len(nodes))
	for _, m := range nodes {
		if m.ctrl != nil {
			if view := m.ctrl.Render(); view != nil {
				out = append(out, view)
			}
			continue
		}
		if !m.shown {
			continue
		}
		layout := m.desc.Layout
		children := e.render(m.kids)
		out = append(out, e.registry.Container(layout.Container).Render(layout.ID, children, layout.Hints))
	}
	return out
}

func snapshot(nodes []*mounted) []Node {
	out := make([]Node, 0, len(nodes))
	for _, m := range nodes {
		node := Node{Path: m.path, Type: m.desc.Node, Shown: m.shown}
		if m.ctrl != nil {
			state := m.ctrl.State()
			node.Name = m.ctrl.Name()
			node.State = &state
		} else {
			node.ID = m.desc.Layout.ID
			node.Children = snapshot(m.kids)
		}
		out = append(out, node)
	}
	return out
}

// leafHost gives one controller access to the engine and its readiness scope.
type leafHost struct {
	engine *Engine
	scope  *scope
}

func (h *leafHost) Current() deep.Data { return h.engine.Data() }

func (h *leafHost) Payload() any { return h.engine.Payload() }

func (h *leafHost) Commit(name string, candidate deep.Data) { h.engine.accept(name, candidate) }

func (h *leafHost) Invalid(name, reason string) { h.engine.invalid(name, reason) }

func (h *leafHost) Ready(string) { h.scope.report(1) }

func (h *leafHost) Blur(name string) { h.engine.blur(name) }

func (h *leafHost) Fail(err error) { h.engine.fail(err) }

func (h *leafHost) Post(fn func()) { h.engine.loop.post(fn) }

package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/adapter"
	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// RootContainer is the container name used for the top-level view.
const RootContainer = "root"

// Engine binds a descriptor tree to one shared data object.
type Engine struct {
	id       string
	cfg      Config
	logger   *zap.Logger
	registry *adapter.Registry
	tree     []schema.Descriptor
	leaves   []schema.Leaf
	supplier Supplier

	onChange  func(deep.Data, bool)
	onReady   func()
	onInvalid func(name, reason string, payload any)
	onBlur    func(name string)

	ctx    context.Context
	cancel context.CancelFunc
	loop   dispatcher

	mu      sync.RWMutex
	data    deep.Data
	payload any
	fields  map[string]*field.Controller
	err     error

	treeMu sync.RWMutex
	root   *scope
	nodes  []*mounted

	ready  atomic.Bool
	closed atomic.Bool
}

// Render validates tree, resolves the initial data once, reports it through
// OnChange with initial=true and mounts the tree. The returned engine becomes
// Ready once every leaf hydrated; with only synchronous leaves that happens
// before Render returns.
func Render(ctx context.Context, tree []schema.Descriptor, options ...Option) (*Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	e := &Engine{
		id:       uuid.NewString(),
		cfg:      DefaultConfig(),
		registry: adapter.NewRegistry(),
		tree:     tree,
		fields:   make(map[string]*field.Controller),
	}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	e.cfg = e.cfg.normalized()
	e.logger = e.cfg.Logger.With(zap.String("engine", e.id))

	if err := schema.Validate(tree); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e.leaves = schema.Flatten(tree)

	data, err := Resolve(ctx, tree, e.supplier)
	if err != nil {
		e.logger.Error("initial data rejected", zap.Error(err))
		return nil, err
	}
	e.data = data
	e.ctx, e.cancel = context.WithCancel(context.WithoutCancel(ctx))

	e.logger.Debug("engine resolved",
		zap.Int("leaves", len(e.leaves)),
		zap.Strings("paths", deep.Paths(data)),
	)

	if e.onChange != nil {
		onChange := e.onChange
		e.loop.post(func() { onChange(data, true) })
	}
	e.loop.post(e.mountRoot)
	return e, nil
}

func (e *Engine) mountRoot() {
	if e.closed.Load() {
		return
	}
	e.treeMu.Lock()
	defer e.treeMu.Unlock()

	units := span(e.tree)
	e.root = newScope("", nil, units)
	e.root.onDone = e.markReady
	e.nodes = e.mountAll(e.tree, "", e.root, e.Data())
	if units == 0 {
		e.root.finish()
	}
}

func (e *Engine) markReady() {
	if !e.ready.CompareAndSwap(false, true) {
		return
	}
	e.logger.Debug("engine ready")
	if e.onReady != nil {
		e.loop.post(e.onReady)
	}
}

// ID identifies the instance in logs.
func (e *Engine) ID() string { return e.id }

// Ready reports whether every leaf finished its first hydration.
func (e *Engine) Ready() bool { return e.ready.Load() }

// Data returns the current shared object. Treat it as read-only.
func (e *Engine) Data() deep.Data {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.data
}

// Payload returns the current predicate payload.
func (e *Engine) Payload() any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.payload
}

// Err reports why the engine stopped, or nil while it runs.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Field returns the controller bound to name while it is mounted.
func (e *Engine) Field(name string) (*field.Controller, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ctrl, ok := e.fields[name]
	return ctrl, ok
}

// Fields lists the names of every mounted leaf in tree order.
func (e *Engine) Fields() []string {
	names := make([]string, 0, len(e.leaves))
	for _, leaf := range e.leaves {
		if _, ok := e.Field(leaf.Name); ok {
			names = append(names, leaf.Name)
		}
	}
	return names
}

// View renders the tree. It reports false until the engine is ready.
func (e *Engine) View() (any, bool) {
	if !e.ready.Load() || e.closed.Load() {
		return nil, false
	}
	e.treeMu.RLock()
	children := e.render(e.nodes)
	e.treeMu.RUnlock()
	return e.registry.Container(RootContainer).Render(RootContainer, children, nil), true
}

// Snapshot describes the mounted tree.
func (e *Engine) Snapshot() Node {
	e.treeMu.RLock()
	defer e.treeMu.RUnlock()
	return Node{
		Type:     schema.NodeLayout,
		ID:       RootContainer,
		Shown:    true,
		Children: snapshot(e.nodes),
	}
}

// SetData replaces the shared object from outside, e.g. after the host
// reloaded it. Leaves with a buffered edit keep showing their local value.
func (e *Engine) SetData(data deep.Data) {
	if data == nil {
		data = deep.Data{}
	}
	e.loop.post(func() {
		if e.stopped() {
			return
		}
		e.setData(data)
		e.propagate(data, false)
	})
}

// SetPayload swaps the predicate payload and re-evaluates every leaf.
func (e *Engine) SetPayload(payload any) {
	e.loop.post(func() {
		if e.stopped() {
			return
		}
		e.mu.Lock()
		e.payload = payload
		e.mu.Unlock()
		e.propagate(e.Data(), true)
	})
}

// Flush commits every buffered edit. The flush is posted to the dispatcher,
// so when another goroutine is draining it, or Flush is called from a host
// callback, the edits land after Flush returns. Use Settle to wait for them.
func (e *Engine) Flush() {
	e.loop.post(e.flushAll)
}

// Settle flushes every buffered edit and blocks until the resulting commits
// were applied to the shared object. It must not be called from a host
// callback, which runs on the dispatcher Settle waits for.
func (e *Engine) Settle(ctx context.Context) error {
	if e.stopped() {
		return e.Err()
	}
	done := make(chan struct{})
	e.loop.post(func() {
		e.flushAll()
		// Queued behind the commits the flush posted.
		e.loop.post(func() { close(done) })
	})
	select {
	case <-done:
		return nil
	case <-e.ctx.Done():
		return e.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) flushAll() {
	e.mu.RLock()
	ctrls := make([]*field.Controller, 0, len(e.fields))
	for _, leaf := range e.leaves {
		if ctrl, ok := e.fields[leaf.Name]; ok {
			ctrls = append(ctrls, ctrl)
		}
	}
	e.mu.RUnlock()
	for _, ctrl := range ctrls {
		ctrl.Flush()
	}
}

// Close unmounts every leaf and stops the engine. Later calls are no-ops.
func (e *Engine) Close() {
	e.shutdown(nil)
}

func (e *Engine) stopped() bool {
	return e.closed.Load()
}

func (e *Engine) setData(data deep.Data) {
	e.mu.Lock()
	e.data = data
	e.mu.Unlock()
}

func (e *Engine) propagate(data deep.Data, force bool) {
	e.treeMu.Lock()
	defer e.treeMu.Unlock()
	e.update(e.nodes, data, force)
}

// accept is the top-level commit. The candidate always becomes the shared
// object so sibling leaves keep progressing, but OnChange only sees it once
// every leaf's validator accepts the whole object.
func (e *Engine) accept(name string, candidate deep.Data) {
	if e.stopped() {
		return
	}
	e.setData(candidate)
	e.propagate(candidate, false)

	payload := e.Payload()
	for _, leaf := range e.leaves {
		if leaf.IsInvalid == nil {
			continue
		}
		if reason := leaf.IsInvalid(candidate, payload); reason != "" {
			e.logger.Debug("commit withheld",
				zap.String("field", name),
				zap.String("by", leaf.Name),
				zap.String("reason", reason),
			)
			return
		}
	}

	e.logger.Debug("commit accepted", zap.String("field", name))
	if e.onChange != nil {
		onChange := e.onChange
		e.loop.post(func() { onChange(candidate, false) })
	}
}

func (e *Engine) invalid(name, reason string) {
	e.logger.Debug("edit invalid", zap.String("field", name), zap.String("reason", reason))
	if e.onInvalid == nil {
		return
	}
	onInvalid := e.onInvalid
	payload := e.Payload()
	e.loop.post(func() { onInvalid(name, reason, payload) })
}

func (e *Engine) blur(name string) {
	if e.onBlur == nil {
		return
	}
	onBlur := e.onBlur
	e.loop.post(func() { onBlur(name) })
}

// fail aborts the instance after an unrecoverable error.
func (e *Engine) fail(err error) {
	e.logger.Error("engine aborted", zap.Error(err))
	e.shutdown(err)
}

func (e *Engine) shutdown(err error) {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.mu.Lock()
	if err == nil {
		err = ErrClosed
	}
	e.err = err
	e.mu.Unlock()

	e.loop.close()
	if e.cancel != nil {
		e.cancel()
	}
	e.treeMu.Lock()
	e.unmount(e.nodes)
	e.treeMu.Unlock()
}

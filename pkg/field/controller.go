// Package field implements the per-leaf state controller. A Controller sits
// between the shared data object and a stateless adapter and runs two
// reactions that never overlap: inbound, when the shared data reference
// changes, and outbound, when a debounced local edit flushes.
//
// Outbound commits follow one protocol: clone the latest data, write the edit
// into the clone, validate the clone, and hand it upward only when it is valid
// and actually differs. Invalid edits never reach the shared object; the host
// hears about them through Host.Invalid instead.
package field

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/adapter"
	"github.com/goliatone/go-formbind/pkg/debounce"
	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// DefaultWait is the debounce window used when nothing else is configured.
const DefaultWait = 300 * time.Millisecond

// Host is the engine side of a controller.
type Host interface {
	// Current returns the latest accepted data object.
	Current() deep.Data
	Payload() any
	// Commit offers a validated candidate that differs from Current.
	Commit(name string, candidate deep.Data)
	Invalid(name, reason string)
	// Ready is called once, on first hydration.
	Ready(name string)
	Blur(name string)
	// Fail aborts the engine after a binding error.
	Fail(err error)
	// Post runs fn on the engine's serial dispatcher.
	Post(fn func())
}

// State is the runtime state of one leaf.
type State struct {
	Value    any
	Dirty    bool
	Disabled bool
	// Invalid holds the reason the value was rejected, "" when valid.
	Invalid  string
	Visible  bool
	Loading  bool
	Readonly bool
}

type edit struct {
	value any
}

// Controller manages one leaf.
type Controller struct {
	leaf    schema.Leaf
	host    Host
	adapter adapter.Adapter
	sched   debounce.Scheduler
	logger  *zap.Logger
	ctx     context.Context

	defaults           schema.DebounceOptions
	readonlyUntilFocus bool
	focusPoll          time.Duration
	onComputeError     func(name string, err error)

	mu           sync.RWMutex
	state        State
	ruleReadonly bool
	focused      bool
	synced       bool
	hydrated     bool
	closed       bool
	seen         deep.Data
	committed    deep.Data
	inflight     int

	computeGen    uint64
	cancelCompute context.CancelFunc
	pollGen       uint64
	stopPoll      debounce.Cancel

	edits *debounce.Debouncer[edit]
}

// New creates a controller for leaf. It stays inert until the first Sync.
func New(leaf schema.Leaf, host Host, options ...Option) *Controller {
	c := &Controller{
		leaf:      leaf,
		host:      host,
		adapter:   adapter.Passthrough,
		sched:     debounce.NewTimerScheduler(),
		logger:    zap.NewNop(),
		ctx:       context.Background(),
		defaults:  schema.DebounceOptions{Wait: DefaultWait},
		focusPoll: DefaultFocusPoll,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	c.state.Visible = true
	c.state.Readonly = c.readonlyUntilFocus
	return c
}

// Name returns the bound dot-path.
func (c *Controller) Name() string { return c.leaf.Name }

// Leaf returns the descriptor.
func (c *Controller) Leaf() schema.Leaf { return c.leaf }

// State returns a snapshot of the runtime state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Hydrated reports whether the first inbound pass completed.
func (c *Controller) Hydrated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hydrated
}

// Pending reports a buffered edit, or a flushed one not yet committed.
func (c *Controller) Pending() bool {
	c.mu.RLock()
	edits, inflight := c.edits, c.inflight
	c.mu.RUnlock()
	return inflight > 0 || (edits != nil && edits.Pending())
}

// Sync is the inbound reaction. It runs when the shared data reference
// changes and is a no-op for a reference it has already seen.
func (c *Controller) Sync(data deep.Data) {
	c.mu.Lock()
	if c.closed || (c.synced && sameRecord(data, c.seen)) {
		c.mu.Unlock()
		return
	}

	own := c.committed != nil && sameRecord(data, c.committed)
	pendingEdit := c.inflight > 0 || (c.edits != nil && c.edits.Pending())
	payload := c.host.Payload()
	prevInvalid := c.state.Invalid != ""

	c.seen = data
	c.synced = true
	c.state.Visible = flag(c.leaf.IsVisible, data, payload, true)
	c.state.Disabled = flag(c.leaf.IsDisabled, data, payload, false)
	c.ruleReadonly = flag(c.leaf.IsReadonly, data, payload, false)
	c.state.Readonly = c.ruleReadonly || (c.readonlyUntilFocus && !c.focused)

	var (
		next     any
		hasValue bool
		failure  error
	)
	switch {
	case c.leaf.Compute != nil:
		value, err := c.leaf.Compute(data, payload)
		if err != nil {
			failure = err
		} else {
			next, hasValue = value, true
		}
	case c.leaf.ComputeAsync != nil:
		c.startCompute(data, payload)
	default:
		next, _ = deep.Get(data, c.leaf.Name)
		hasValue = true
	}

	// A buffered local edit outranks the shared value until it flushes, and
	// our own commit flowing back must not rewrite what the user sees.
	if hasValue && !own && !pendingEdit {
		if prevInvalid || !deep.Equal(next, c.state.Value) {
			c.state.Value = next
		}
	}
	if !pendingEdit {
		c.state.Invalid = check(c.leaf.IsInvalid, data, payload)
	}

	firstHydration := false
	if !c.hydrated && (c.leaf.ComputeAsync == nil || failure != nil) {
		c.hydrated = true
		firstHydration = true
	}
	c.mu.Unlock()

	if failure != nil {
		c.computeFailed(failure)
	}
	if firstHydration {
		c.host.Ready(c.leaf.Name)
	}
}

// Refresh re-runs the inbound reaction against the last seen data, used when
// the payload changes without a new data reference.
func (c *Controller) Refresh() {
	c.mu.Lock()
	if c.closed || !c.synced {
		c.mu.Unlock()
		return
	}
	data := c.seen
	c.synced = false
	c.mu.Unlock()
	c.Sync(data)
}

// startCompute launches an async derivation. Callers hold c.mu.
func (c *Controller) startCompute(data deep.Data, payload any) {
	if c.cancelCompute != nil {
		c.cancelCompute()
	}
	c.computeGen++
	gen := c.computeGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelCompute = cancel
	c.state.Loading = true

	fn := c.leaf.ComputeAsync
	go func() {
		value, err := fn(ctx, data, payload)
		c.host.Post(func() { c.resolved(gen, value, err) })
	}()
}

func (c *Controller) resolved(gen uint64, value any, err error) {
	c.mu.Lock()
	if c.closed || gen != c.computeGen {
		c.mu.Unlock()
		return
	}
	c.state.Loading = false
	if c.cancelCompute != nil {
		c.cancelCompute()
		c.cancelCompute = nil
	}
	if err == nil {
		c.state.Value = value
	}
	firstHydration := !c.hydrated
	c.hydrated = true
	c.mu.Unlock()

	if err != nil {
		c.computeFailed(err)
	}
	if firstHydration {
		c.host.Ready(c.leaf.Name)
	}
}

func (c *Controller) computeFailed(err error) {
	if c.onComputeError != nil {
		c.onComputeError(c.leaf.Name, err)
		return
	}
	c.logger.Warn("field derivation failed; keeping last value",
		zap.String("field", c.leaf.Name),
		zap.Error(err),
	)
}

// OnChange records a local edit. Edits on disabled or rule-readonly fields
// are ignored.
func (c *Controller) OnChange(value any, opts adapter.ChangeOptions) {
	c.mu.Lock()
	if c.closed || c.state.Disabled || c.ruleReadonly {
		c.mu.Unlock()
		return
	}
	if c.leaf.Transform != nil {
		value = c.leaf.Transform(value)
	}
	c.state.Value = value
	c.state.Dirty = true
	edits := c.debouncer()
	c.mu.Unlock()

	edits.Call(edit{value: value})
	if opts.Immediate || c.leaf.Immediate {
		edits.Flush()
	}
}

// debouncer lazily builds the edit buffer. Callers hold c.mu.
func (c *Controller) debouncer() *debounce.Debouncer[edit] {
	if c.edits != nil {
		return c.edits
	}
	opts := c.defaults
	if c.leaf.Debounce != nil {
		opts = *c.leaf.Debounce
	}
	options := []debounce.Option{
		debounce.WithScheduler(c.sched),
		debounce.WithLeading(opts.Leading),
		debounce.WithMaxWait(opts.MaxWait),
	}
	if opts.Trailing != nil {
		options = append(options, debounce.WithTrailing(*opts.Trailing))
	}
	c.edits = debounce.New(func(e edit) {
		c.mu.Lock()
		c.inflight++
		c.mu.Unlock()
		c.host.Post(func() { c.commit(e) })
	}, opts.Wait, options...)
	return c.edits
}

// commit is the outbound reaction.
func (c *Controller) commit(e edit) {
	c.mu.Lock()
	if c.inflight > 0 {
		c.inflight--
	}
	if c.closed {
		c.mu.Unlock()
		return
	}

	base := c.host.Current()
	payload := c.host.Payload()
	candidate := deep.CloneData(base)
	if !deep.Set(candidate, c.leaf.Name, e.value) {
		c.mu.Unlock()
		c.host.Fail(&BindingError{Path: c.leaf.Name, Op: "set"})
		return
	}

	prevInvalid := c.state.Invalid != ""
	c.state.Dirty = true
	if reason := check(c.leaf.IsInvalid, candidate, payload); reason != "" {
		c.state.Invalid = reason
		c.mu.Unlock()
		c.host.Invalid(c.leaf.Name, reason)
		return
	}
	c.state.Invalid = ""

	if !prevInvalid && deep.Equal(candidate, base) {
		c.mu.Unlock()
		return
	}
	c.committed = candidate
	c.mu.Unlock()

	c.host.Commit(c.leaf.Name, candidate)
}

// Flush commits a buffered edit now.
func (c *Controller) Flush() {
	c.mu.RLock()
	edits := c.edits
	c.mu.RUnlock()
	if edits != nil {
		edits.Flush()
	}
}

// Focus lifts the focus-gated readonly flag. With a probe, focus loss is
// detected by polling it on the scheduler.
func (c *Controller) Focus(probe func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.focused = true
	c.state.Readonly = c.ruleReadonly
	c.disarmPoll()
	if probe != nil {
		c.armPoll(probe)
	}
}

// armPoll schedules the next focus check. Callers hold c.mu.
func (c *Controller) armPoll(probe func() bool) {
	c.pollGen++
	gen := c.pollGen
	c.stopPoll = c.sched.After(c.focusPoll, func() {
		c.mu.RLock()
		stale := c.closed || gen != c.pollGen
		c.mu.RUnlock()
		if stale {
			return
		}
		if probe() {
			c.mu.Lock()
			if !c.closed && gen == c.pollGen {
				c.armPoll(probe)
			}
			c.mu.Unlock()
			return
		}
		c.Blur()
	})
}

func (c *Controller) disarmPoll() {
	c.pollGen++
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

// Blur flushes any buffered edit and notifies the host.
func (c *Controller) Blur() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.focused = false
	c.disarmPoll()
	c.state.Readonly = c.ruleReadonly || c.readonlyUntilFocus
	edits := c.edits
	c.mu.Unlock()

	if edits != nil {
		edits.Flush()
	}
	c.host.Blur(c.leaf.Name)
}

// Props builds the adapter view of the current state. Validation messages
// stay hidden until the field is dirty.
func (c *Controller) Props() adapter.Props {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	props := adapter.Props{
		Name:     c.leaf.Name,
		Kind:     c.leaf.Kind,
		Label:    c.leaf.Label,
		Hints:    c.leaf.Hints,
		Value:    state.Value,
		Disabled: state.Disabled,
		Readonly: state.Readonly,
		Dirty:    state.Dirty,
		Loading:  state.Loading,
		Visible:  state.Visible,
		OnChange: c.OnChange,
		OnFocus:  c.Focus,
		OnBlur:   c.Blur,
	}
	if state.Dirty {
		props.Invalid = state.Invalid
	}
	return props
}

// Render draws the leaf through its adapter; hidden leaves render nothing.
func (c *Controller) Render() any {
	props := c.Props()
	if !props.Visible {
		return nil
	}
	return c.adapter.Render(props)
}

// Close stops timers, discards in-flight derivations and makes the controller
// ignore everything that arrives afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.disarmPoll()
	if c.cancelCompute != nil {
		c.cancelCompute()
		c.cancelCompute = nil
	}
	edits := c.edits
	c.mu.Unlock()

	if edits != nil {
		edits.Close()
	}
}

func flag(fn schema.Flag, data deep.Data, payload any, fallback bool) bool {
	if fn == nil {
		return fallback
	}
	return fn(data, payload)
}

func check(fn schema.Check, data deep.Data, payload any) string {
	if fn == nil {
		return ""
	}
	return fn(data, payload)
}

func sameRecord(a, b deep.Data) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

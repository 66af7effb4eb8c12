// Package debounce collapses bursts of calls into a single invocation. A
// Debouncer fires on the trailing edge by default, can also fire on the
// leading edge, and can cap how long a sustained burst postpones invocation
// with a max-wait ceiling. Time is supplied by a Scheduler so the same code
// runs against wall-clock timers or a host redraw loop.
package debounce

import (
	"sync"
	"time"
)

// Option configures a Debouncer.
type Option func(*config)

type config struct {
	leading   bool
	trailing  bool
	maxWait   time.Duration
	scheduler Scheduler
}

// WithLeading invokes on the first call of a burst.
func WithLeading(enabled bool) Option {
	return func(cfg *config) { cfg.leading = enabled }
}

// WithTrailing invokes once the burst settles. Enabled by default.
func WithTrailing(enabled bool) Option {
	return func(cfg *config) { cfg.trailing = enabled }
}

// WithMaxWait forces an invocation at least every d while calls keep coming.
func WithMaxWait(d time.Duration) Option {
	return func(cfg *config) { cfg.maxWait = d }
}

// WithScheduler overrides the default TimerScheduler.
func WithScheduler(s Scheduler) Option {
	return func(cfg *config) {
		if s != nil {
			cfg.scheduler = s
		}
	}
}

// Debouncer buffers the latest argument of a burst of calls and hands it to
// the callback once the burst settles.
type Debouncer[T any] struct {
	mu sync.Mutex

	fn       func(T)
	wait     time.Duration
	maxWait  time.Duration
	leading  bool
	trailing bool
	sched    Scheduler

	arg        T
	pending    bool
	lastCall   time.Time
	lastInvoke time.Time

	active bool
	gen    uint64
	stop   Cancel
	closed bool
}

// New wraps fn. A zero wait aligns invocation with the scheduler's next frame
// when it supports frames.
func New[T any](fn func(T), wait time.Duration, options ...Option) *Debouncer[T] {
	cfg := config{trailing: true}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.scheduler == nil {
		cfg.scheduler = NewTimerScheduler()
	}
	if cfg.maxWait > 0 && cfg.maxWait < wait {
		cfg.maxWait = wait
	}
	if wait < 0 {
		wait = 0
	}

	return &Debouncer[T]{
		fn:       fn,
		wait:     wait,
		maxWait:  cfg.maxWait,
		leading:  cfg.leading,
		trailing: cfg.trailing,
		sched:    cfg.scheduler,
	}
}

// Call records arg as the latest value of the current burst.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	now := d.sched.Now()
	d.arg = arg
	d.pending = true
	d.lastCall = now

	if d.active {
		d.mu.Unlock()
		return
	}

	d.active = true
	d.lastInvoke = now
	d.schedule(d.wait)

	if !d.leading {
		d.mu.Unlock()
		return
	}
	value := d.take()
	d.mu.Unlock()
	d.fn(value)
}

// Flush invokes the buffered call synchronously, if any, and resets state.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.reset()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	value := d.take()
	d.mu.Unlock()
	d.fn(value)
}

// Cancel drops the buffered call without invoking it.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	d.discard()
}

// Pending reports whether a call is buffered.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// LastCall reports when the latest call arrived.
func (d *Debouncer[T]) LastCall() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCall
}

// Close cancels and makes every later call a no-op.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
	d.discard()
	d.closed = true
}

// schedule arms the timer for delay. Callers hold d.mu.
func (d *Debouncer[T]) schedule(delay time.Duration) {
	if d.stop != nil {
		d.stop()
	}
	d.gen++
	gen := d.gen
	expire := func() { d.expired(gen) }

	if delay == 0 {
		if frames, ok := d.sched.(FrameRequester); ok {
			d.stop = frames.NextFrame(expire)
			return
		}
	}
	d.stop = d.sched.After(delay, expire)
}

func (d *Debouncer[T]) expired(gen uint64) {
	d.mu.Lock()
	if d.closed || !d.active || gen != d.gen {
		d.mu.Unlock()
		return
	}

	now := d.sched.Now()
	if !d.shouldInvoke(now) {
		d.schedule(d.remaining(now))
		d.mu.Unlock()
		return
	}

	d.active = false
	d.stop = nil
	if !d.trailing || !d.pending {
		d.discard()
		d.mu.Unlock()
		return
	}
	value := d.take()
	d.lastInvoke = now
	d.mu.Unlock()
	d.fn(value)
}

func (d *Debouncer[T]) shouldInvoke(now time.Time) bool {
	if now.Sub(d.lastCall) >= d.wait {
		return true
	}
	return d.maxWait > 0 && now.Sub(d.lastInvoke) >= d.maxWait
}

func (d *Debouncer[T]) remaining(now time.Time) time.Duration {
	left := d.wait - now.Sub(d.lastCall)
	if d.maxWait > 0 {
		if ceiling := d.maxWait - now.Sub(d.lastInvoke); ceiling < left {
			left = ceiling
		}
	}
	if left < 0 {
		return 0
	}
	return left
}

func (d *Debouncer[T]) take() T {
	value := d.arg
	d.discard()
	return value
}

func (d *Debouncer[T]) discard() {
	var zero T
	d.arg = zero
	d.pending = false
}

func (d *Debouncer[T]) reset() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
	d.gen++
	d.active = false
}

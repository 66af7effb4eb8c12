package field

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/adapter"
	"github.com/goliatone/go-formbind/pkg/debounce"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// DefaultFocusPoll is how often a focus probe is checked.
const DefaultFocusPoll = 150 * time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithAdapter sets the adapter used by Render. Defaults to adapter.Passthrough.
func WithAdapter(a adapter.Adapter) Option {
	return func(c *Controller) {
		if a != nil {
			c.adapter = a
		}
	}
}

// WithScheduler drives debounce timers and focus polling.
func WithScheduler(s debounce.Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithDebounce sets the debounce used when the leaf does not carry its own.
func WithDebounce(opts schema.DebounceOptions) Option {
	return func(c *Controller) {
		c.defaults = opts
	}
}

// WithReadonlyUntilFocus keeps the field readonly until the adapter reports
// focus, which stops touch keyboards and password managers from autofilling.
func WithReadonlyUntilFocus(enabled bool) Option {
	return func(c *Controller) {
		c.readonlyUntilFocus = enabled
	}
}

// WithFocusPoll overrides DefaultFocusPoll.
func WithFocusPoll(interval time.Duration) Option {
	return func(c *Controller) {
		if interval > 0 {
			c.focusPoll = interval
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithComputeErrorHandler receives failed derivations. The leaf keeps its
// last good value either way.
func WithComputeErrorHandler(fn func(name string, err error)) Option {
	return func(c *Controller) {
		c.onComputeError = fn
	}
}

// WithContext bounds asynchronous derivations; cancelling it discards them.
func WithContext(ctx context.Context) Option {
	return func(c *Controller) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

package engine

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formbind/pkg/adapter"
	"github.com/goliatone/go-formbind/pkg/deep"
)

// Option configures an Engine before it mounts.
type Option func(*Engine)

// WithInitialData merges data over the resolved defaults.
func WithInitialData(data deep.Data) Option {
	return func(e *Engine) {
		e.supplier = Static(data)
	}
}

// WithInitialDataFunc supplies initial data lazily.
func WithInitialDataFunc(fn func() deep.Data) Option {
	return func(e *Engine) {
		if fn != nil {
			e.supplier = Func(fn)
		}
	}
}

// WithSupplier uses any Supplier, e.g. a Loader reading from disk.
func WithSupplier(s Supplier) Option {
	return func(e *Engine) {
		e.supplier = s
	}
}

// WithOnChange receives every data object that all leaves accept. Edits
// leaving some other leaf invalid update Data but are not reported until a
// later edit makes the whole object valid. The initial call after
// resolution passes initial=true. The object must be treated as read-only.
func WithOnChange(fn func(data deep.Data, initial bool)) Option {
	return func(e *Engine) {
		e.onChange = fn
	}
}

// WithOnReady fires once, after every leaf hydrated.
func WithOnReady(fn func()) Option {
	return func(e *Engine) {
		e.onReady = fn
	}
}

// WithOnInvalid receives edits rejected by a leaf's own validator.
func WithOnInvalid(fn func(name, reason string, payload any)) Option {
	return func(e *Engine) {
		e.onInvalid = fn
	}
}

// WithOnBlur is told when a leaf loses focus.
func WithOnBlur(fn func(name string)) Option {
	return func(e *Engine) {
		e.onBlur = fn
	}
}

// WithPayload sets the context value every predicate receives.
func WithPayload(payload any) Option {
	return func(e *Engine) {
		e.payload = payload
	}
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithLogger overrides Config.Logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.cfg.Logger = logger
		}
	}
}

// WithAdapters selects the registry leaves and layouts resolve against.
func WithAdapters(registry *adapter.Registry) Option {
	return func(e *Engine) {
		if registry != nil {
			e.registry = registry
		}
	}
}

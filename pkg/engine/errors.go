package engine

import (
	"errors"

	"github.com/goliatone/go-formbind/pkg/field"
)

var (
	// ErrBinding matches every binding failure, at construction or while
	// committing edits.
	ErrBinding = field.ErrBinding
	// ErrClosed is returned by Err after Close when nothing failed earlier.
	ErrClosed = errors.New("engine: closed")
	// ErrNoSupplier is returned by Resolve when given a nil supplier value.
	ErrNoSupplier = errors.New("engine: nil initial data supplier")
)

// BindingError names the leaf path that cannot be bound.
type BindingError = field.BindingError

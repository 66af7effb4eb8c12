package engine

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/schema"
)

// Supplier produces the caller's initial data.
type Supplier interface {
	Supply(ctx context.Context) (deep.Data, error)
}

// Static supplies a fixed object.
type Static deep.Data

// Supply returns the object.
func (s Static) Supply(context.Context) (deep.Data, error) { return deep.Data(s), nil }

// Func supplies whatever fn returns.
type Func func() deep.Data

// Supply calls fn.
func (fn Func) Supply(context.Context) (deep.Data, error) { return fn(), nil }

// Loader supplies data from a source that may fail or block.
type Loader func(ctx context.Context) (deep.Data, error)

// Supply calls fn with ctx.
func (fn Loader) Supply(ctx context.Context) (deep.Data, error) { return fn(ctx) }

// Resolve builds the starting data object for tree. Every leaf path is created
// in a scratch object and seeded with the leaf default, an existing value, or
// the baseline for its kind; the caller's data is then merged over it. A nil
// supplier means no initial data.
func Resolve(ctx context.Context, tree []schema.Descriptor, supplier Supplier) (deep.Data, error) {
	leaves := schema.Flatten(tree)
	scratch := deep.Data{}
	for _, leaf := range leaves {
		if !deep.Create(scratch, leaf.Name) {
			return nil, &BindingError{Path: leaf.Name, Op: "create"}
		}
		if leaf.Default != nil {
			deep.Set(scratch, leaf.Name, deep.Clone(leaf.Default))
			continue
		}
		if _, ok := deep.Get(scratch, leaf.Name); ok {
			continue
		}
		deep.Set(scratch, leaf.Name, Baseline(leaf.Kind))
	}

	var initial deep.Data
	if supplier != nil {
		data, err := supplier.Supply(ctx)
		if err != nil {
			return nil, fmt.Errorf("engine: initial data: %w", err)
		}
		initial = data
	}
	merged := deep.Merge(scratch, initial)

	// The caller may have replaced a parent record with a scalar.
	for _, leaf := range leaves {
		if !deep.Create(merged, leaf.Name) {
			return nil, &BindingError{Path: leaf.Name, Op: "create"}
		}
	}
	return merged, nil
}

// Baseline is the zero value a leaf of kind starts from.
func Baseline(kind schema.Kind) any {
	switch kind {
	case schema.KindBoolean:
		return false
	case schema.KindNumber:
		return 0
	case schema.KindText, "":
		return ""
	default:
		return nil
	}
}

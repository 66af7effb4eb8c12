// Package visibility defines the inputs rule strings are evaluated against.
// Rules read the shared data object by dot-path and the predicate payload
// through the `extras.` prefix.
package visibility

import (
	"reflect"

	"github.com/goliatone/go-formbind/pkg/deep"
)

// Evaluator decides a rule against a context.
type Evaluator interface {
	Eval(rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values is the shared data object;
// Extras exposes the payload when it is a record, e.g. user roles or feature
// flags.
type Context struct {
	Values deep.Data
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(rule string, ctx Context) (bool, error) {
	return fn(rule, ctx)
}

// NewContext builds the context for one predicate call. Payloads that are
// string-keyed maps become Extras; anything else is ignored by rules.
func NewContext(data deep.Data, payload any) Context {
	return Context{Values: data, Extras: extras(payload)}
}

func extras(payload any) map[string]any {
	switch typed := payload.(type) {
	case nil:
		return nil
	case map[string]any:
		return typed
	case map[string]string:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		return out
	}

	rv := reflect.ValueOf(payload)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}

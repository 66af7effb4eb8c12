// Package expr evaluates small rule strings against the shared data object.
//
// Supported forms:
//   - truthiness: `enabled`, `!enabled`
//   - comparisons: `plan == "pro"`, `seats != 0`, `age >= 18`, `name < "m"`
//   - composition with `&&`, `||` and parentheses
//
// Identifiers are dot-paths into the data; the `extras.` prefix reads the
// payload instead. Literals are strings, numbers, true/false and null; a bare
// word on the right-hand side is compared as a string.
package expr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/visibility"
)

// Program is a compiled rule. It is safe for concurrent use.
type Program struct {
	source string
	root   node
}

// Compile parses rule. An empty rule always evaluates to true.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	prog := &Program{source: trimmed}
	if trimmed == "" {
		return prog, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	root, err := parse(tokens)
	if err != nil {
		return nil, err
	}
	prog.root = root
	return prog, nil
}

// MustCompile is Compile for rules known at init time.
func MustCompile(rule string) *Program {
	prog, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return prog
}

// String returns the rule source.
func (p *Program) String() string { return p.source }

// Eval runs the program.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

// Evaluator implements visibility.Evaluator, caching compiled rules.
type Evaluator struct {
	cache sync.Map
}

// New returns an Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Eval compiles rule once and evaluates it.
func (e *Evaluator) Eval(rule string, ctx visibility.Context) (bool, error) {
	if cached, ok := e.cache.Load(rule); ok {
		return cached.(*Program).Eval(ctx)
	}
	prog, err := Compile(rule)
	if err != nil {
		return false, err
	}
	e.cache.Store(rule, prog)
	return prog.Eval(ctx)
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// Flag compiles rule into a schema predicate. Evaluation errors, which only
// come from unsupported literal and operator pairs, count as false.
func Flag(rule string) (schema.Flag, error) {
	prog, err := Compile(rule)
	if err != nil {
		return nil, fmt.Errorf("visibility/expr: rule %q: %w", rule, err)
	}
	return func(data deep.Data, payload any) bool {
		ok, err := prog.Eval(visibility.NewContext(data, payload))
		return ok && err == nil
	}, nil
}

// Check compiles rule into a validator: data is invalid, with message as the
// reason, whenever the rule does not hold.
func Check(rule, message string) (schema.Check, error) {
	prog, err := Compile(rule)
	if err != nil {
		return nil, fmt.Errorf("visibility/expr: rule %q: %w", rule, err)
	}
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("must satisfy %s", prog.source)
	}
	return func(data deep.Data, payload any) string {
		ok, err := prog.Eval(visibility.NewContext(data, payload))
		if err != nil || !ok {
			return message
		}
		return ""
	}, nil
}

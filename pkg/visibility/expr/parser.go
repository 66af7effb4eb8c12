package expr

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goliatone/go-formbind/pkg/visibility"
)

// Grammar, lowest precedence first:
//
//	or      = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | primary
//	primary = "(" or ")" | bool | ident [ op literal ]
type node interface {
	eval(ctx visibility.Context) (bool, error)
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok && err == nil, err
}

type constNode bool

func (n constNode) eval(visibility.Context) (bool, error) { return bool(n), nil }

type truthyNode struct{ path string }

func (n truthyNode) eval(ctx visibility.Context) (bool, error) {
	value, ok := lookup(ctx, n.path)
	return ok && truthy(value), nil
}

type literal struct {
	kind   tokenKind
	text   string
	number float64
}

type compareNode struct {
	path string
	op   tokenKind
	lit  literal
}

func (n compareNode) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.path)
	return compare(n.op, value, n.lit)
}

type parser struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q at %d", tok.raw, tok.pos)
	}
	return root, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) accept(kinds ...tokenKind) (token, bool) {
	tok, ok := p.peek()
	if !ok {
		return token{}, false
	}
	for _, kind := range kinds {
		if tok.kind == kind {
			p.pos++
			return tok, true
		}
	}
	return token{}, false
}

func (p *parser) or() (node, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokenOr); !ok {
			return left, nil
		}
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
}

func (p *parser) and() (node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.accept(tokenAnd); !ok {
			return left, nil
		}
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
}

func (p *parser) unary() (node, error) {
	if _, ok := p.accept(tokenNot); ok {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if _, ok := p.accept(tokenLParen); ok {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, ok := p.accept(tokenRParen); !ok {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}
	if tok, ok := p.accept(tokenBool); ok {
		return constNode(tok.raw == "true"), nil
	}

	ident, ok := p.accept(tokenIdentifier)
	if !ok {
		tok, more := p.peek()
		if !more {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier at %d, got %q", tok.pos, tok.raw)
	}

	op, ok := p.accept(tokenEq, tokenNeq, tokenLt, tokenLte, tokenGt, tokenGte)
	if !ok {
		return truthyNode{path: ident.raw}, nil
	}
	lit, err := p.literal(op)
	if err != nil {
		return nil, err
	}
	return compareNode{path: ident.raw, op: op.kind, lit: lit}, nil
}

func (p *parser) literal(op token) (literal, error) {
	tok, ok := p.peek()
	if !ok {
		return literal{}, fmt.Errorf("visibility/expr: missing literal after %q", op.raw)
	}
	p.pos++

	var lit literal
	switch tok.kind {
	case tokenString, tokenBool, tokenNull:
		lit = literal{kind: tok.kind, text: tok.raw}
	case tokenIdentifier:
		// Bare words compare as strings.
		lit = literal{kind: tokenString, text: tok.raw}
	case tokenNumber:
		number, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return literal{}, fmt.Errorf("visibility/expr: invalid number literal %q", tok.raw)
		}
		lit = literal{kind: tokenNumber, text: tok.raw, number: number}
	default:
		return literal{}, fmt.Errorf("visibility/expr: expected literal at %d, got %q", tok.pos, tok.raw)
	}

	if isOrdering(op.kind) && lit.kind != tokenNumber && lit.kind != tokenString {
		return literal{}, fmt.Errorf("visibility/expr: %q needs a number or string, got %q", op.raw, tok.raw)
	}
	return lit, nil
}

func isOrdering(kind tokenKind) bool {
	switch kind {
	case tokenLt, tokenLte, tokenGt, tokenGte:
		return true
	}
	return false
}

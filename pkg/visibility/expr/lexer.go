package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

// lexer splits a rule into tokens. Bare words become identifiers, numbers,
// booleans or null.
type lexer struct {
	input  string
	pos    int
	tokens []token
}

func tokenize(input string) ([]token, error) {
	lx := &lexer{input: input}
	for {
		lx.skipSpace()
		if lx.pos >= len(lx.input) {
			return lx.tokens, nil
		}
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
}

func (lx *lexer) emit(kind tokenKind, raw string, start int) {
	lx.tokens = append(lx.tokens, token{kind: kind, raw: raw, pos: start})
}

func (lx *lexer) peek(offset int) byte {
	if lx.pos+offset >= len(lx.input) {
		return 0
	}
	return lx.input[lx.pos+offset]
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.input) && isSpace(lx.input[lx.pos]) {
		lx.pos++
	}
}

func (lx *lexer) next() error {
	start := lx.pos
	ch := lx.peek(0)

	two := func(kind tokenKind, raw string) {
		lx.pos += 2
		lx.emit(kind, raw, start)
	}
	one := func(kind tokenKind) {
		lx.pos++
		lx.emit(kind, string(ch), start)
	}

	switch {
	case ch == '(':
		one(tokenLParen)
	case ch == ')':
		one(tokenRParen)
	case ch == '!' && lx.peek(1) == '=':
		two(tokenNeq, "!=")
	case ch == '!':
		one(tokenNot)
	case ch == '=' && lx.peek(1) == '=':
		two(tokenEq, "==")
	case ch == '=':
		return fmt.Errorf("visibility/expr: unexpected '=' at %d; use '=='", start)
	case ch == '<' && lx.peek(1) == '=':
		two(tokenLte, "<=")
	case ch == '<':
		one(tokenLt)
	case ch == '>' && lx.peek(1) == '=':
		two(tokenGte, ">=")
	case ch == '>':
		one(tokenGt)
	case ch == '&' && lx.peek(1) == '&':
		two(tokenAnd, "&&")
	case ch == '|' && lx.peek(1) == '|':
		two(tokenOr, "||")
	case ch == '&' || ch == '|':
		return fmt.Errorf("visibility/expr: unexpected %q at %d; use %q", ch, start, string([]byte{ch, ch}))
	case ch == '"' || ch == '\'':
		return lx.quoted(ch)
	default:
		lx.word()
	}
	return nil
}

func (lx *lexer) quoted(quote byte) error {
	start := lx.pos
	lx.pos++
	escaped := false
	for lx.pos < len(lx.input) {
		c := lx.input[lx.pos]
		lx.pos++
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == quote:
			body := lx.input[start+1 : lx.pos-1]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return fmt.Errorf("visibility/expr: invalid string literal at %d: %w", start, err)
			}
			lx.emit(tokenString, value, start)
			return nil
		}
	}
	return errors.New("visibility/expr: unterminated string literal")
}

func (lx *lexer) word() {
	start := lx.pos
	for lx.pos < len(lx.input) && !isDelimiter(lx.input[lx.pos]) {
		lx.pos++
	}
	raw := lx.input[start:lx.pos]
	switch lower := strings.ToLower(raw); {
	case lower == "true" || lower == "false":
		lx.emit(tokenBool, lower, start)
	case lower == "null" || lower == "nil":
		lx.emit(tokenNull, "null", start)
	case looksLikeNumber(raw):
		lx.emit(tokenNumber, raw, start)
	default:
		lx.emit(tokenIdentifier, raw, start)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	if isSpace(c) {
		return true
	}
	switch c {
	case '(', ')', '!', '=', '<', '>', '&', '|', '"', '\'':
		return true
	}
	return false
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	if c := raw[0]; !(c >= '0' && c <= '9') && c != '-' && c != '+' && c != '.' {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

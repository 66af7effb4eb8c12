package schemafile

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbind/pkg/schema"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// transforms maps names usable in `transform:` lists. Each one passes
// non-string values through untouched.
var transforms = map[string]schema.TransformFunc{
	"trim":     stringTransform(strings.TrimSpace),
	"lower":    stringTransform(strings.ToLower),
	"upper":    stringTransform(strings.ToUpper),
	"sanitize": stringTransform(sanitizeText),
	"number":   parseNumber,
}

func stringTransform(fn func(string) string) schema.TransformFunc {
	return func(value any) any {
		s, ok := value.(string)
		if !ok {
			return value
		}
		return fn(s)
	}
}

// parseNumber converts numeric strings and leaves anything else as typed so
// a validator can still reject it.
func parseNumber(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return value
}

// sanitizeText strips every tag from free text. The result is HTML-escaped.
func sanitizeText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(textPolicy.Sanitize(raw))
}

func buildTransform(names []string) (schema.TransformFunc, error) {
	chain := make([]schema.TransformFunc, 0, len(names))
	for _, name := range names {
		fn, ok := transforms[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown transform %q", name)
		}
		chain = append(chain, fn)
	}
	return func(value any) any {
		for _, fn := range chain {
			value = fn(value)
		}
		return value
	}, nil
}

package schemafile

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/visibility/expr"
)

type valueCheck func(value any) string

// buildCheck turns a ValidateSpec into a leaf validator reading path. Empty
// values only fail `required`; every other check skips them.
func buildCheck(path string, spec ValidateSpec) (schema.Check, error) {
	var checks []valueCheck

	if spec.Required {
		checks = append(checks, func(value any) string {
			if isEmpty(value) {
				return "is required"
			}
			return ""
		})
	}
	if spec.Number || spec.Integer {
		integer := spec.Integer
		checks = append(checks, skipEmpty(func(value any) string {
			n, ok := toNumber(value)
			switch {
			case !ok:
				return "must be a number"
			case integer && n != math.Trunc(n):
				return "must be a whole number"
			}
			return ""
		}))
	}
	if spec.MinLength != nil {
		limit := *spec.MinLength
		checks = append(checks, skipEmpty(func(value any) string {
			if length(value) < limit {
				return fmt.Sprintf("must be at least %d characters", limit)
			}
			return ""
		}))
	}
	if spec.MaxLength != nil {
		limit := *spec.MaxLength
		checks = append(checks, skipEmpty(func(value any) string {
			if length(value) > limit {
				return fmt.Sprintf("must be at most %d characters", limit)
			}
			return ""
		}))
	}
	if spec.Pattern != "" {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern: %w", err)
		}
		checks = append(checks, skipEmpty(func(value any) string {
			if !re.MatchString(fmt.Sprint(value)) {
				return "has an invalid format"
			}
			return ""
		}))
	}
	if spec.Min != nil {
		limit := *spec.Min
		checks = append(checks, skipEmpty(func(value any) string {
			if n, ok := toNumber(value); !ok || n < limit {
				return "must be at least " + formatNumber(limit)
			}
			return ""
		}))
	}
	if spec.Max != nil {
		limit := *spec.Max
		checks = append(checks, skipEmpty(func(value any) string {
			if n, ok := toNumber(value); !ok || n > limit {
				return "must be at most " + formatNumber(limit)
			}
			return ""
		}))
	}

	var rule schema.Check
	if strings.TrimSpace(spec.Rule) != "" {
		compiled, err := expr.Check(spec.Rule, spec.Message)
		if err != nil {
			return nil, err
		}
		rule = compiled
	}

	message := strings.TrimSpace(spec.Message)
	return func(data deep.Data, payload any) string {
		value, _ := deep.Get(data, path)
		for _, check := range checks {
			if reason := check(value); reason != "" {
				if message != "" {
					return message
				}
				return reason
			}
		}
		if rule != nil {
			return rule(data, payload)
		}
		return ""
	}, nil
}

func skipEmpty(check valueCheck) valueCheck {
	return func(value any) string {
		if isEmpty(value) {
			return ""
		}
		return check(value)
	}
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func length(value any) int {
	switch v := value.(type) {
	case string:
		return utf8.RuneCountInString(v)
	case []any:
		return len(v)
	}
	return utf8.RuneCountInString(fmt.Sprint(value))
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/visibility"
)

const extrasPrefix = "extras."

func lookup(ctx visibility.Context, path string) (any, bool) {
	if len(path) > len(extrasPrefix) && strings.EqualFold(path[:len(extrasPrefix)], extrasPrefix) {
		return lookupIn(ctx.Extras, path[len(extrasPrefix):])
	}
	return lookupIn(ctx.Values, path)
}

func lookupIn(values map[string]any, path string) (any, bool) {
	if len(values) == 0 || path == "" {
		return nil, false
	}
	// Flattened keys such as "cta.headline" win over traversal.
	if v, ok := values[path]; ok {
		return v, true
	}
	if v, ok := deep.Get(values, path); ok {
		return v, true
	}

	// Payloads may carry map[string]string records.
	head, rest, found := strings.Cut(path, ".")
	if !found {
		return nil, false
	}
	if nested, ok := values[head].(map[string]string); ok {
		v, ok := nested[rest]
		return v, ok
	}
	return nil, false
}

func compare(op tokenKind, value any, lit literal) (bool, error) {
	switch lit.kind {
	case tokenNull:
		return equality(op, isNull(value))
	case tokenBool:
		got, _ := coerceBool(value)
		return equality(op, got == (lit.text == "true"))
	case tokenNumber:
		got, ok := coerceNumber(value)
		if !ok {
			if isOrdering(op) {
				return false, nil
			}
			got = 0
		}
		return order(op, compareFloat(got, lit.number))
	case tokenString:
		got := coerceString(value)
		if isOrdering(op) {
			if n, ok := coerceNumber(value); ok {
				if want, err := strconv.ParseFloat(lit.text, 64); err == nil {
					return order(op, compareFloat(n, want))
				}
			}
		}
		return order(op, strings.Compare(got, lit.text))
	}
	return false, fmt.Errorf("visibility/expr: unsupported literal %q", lit.text)
}

func equality(op tokenKind, equal bool) (bool, error) {
	switch op {
	case tokenEq:
		return equal, nil
	case tokenNeq:
		return !equal, nil
	}
	return false, fmt.Errorf("visibility/expr: operator not supported for literal")
}

func order(op tokenKind, cmp int) (bool, error) {
	switch op {
	case tokenEq:
		return cmp == 0, nil
	case tokenNeq:
		return cmp != 0, nil
	case tokenLt:
		return cmp < 0, nil
	case tokenLte:
		return cmp <= 0, nil
	case tokenGt:
		return cmp > 0, nil
	case tokenGte:
		return cmp >= 0, nil
	}
	return false, fmt.Errorf("visibility/expr: unknown operator")
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func isNull(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func truthy(value any) bool {
	if isNull(value) {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if n, ok := coerceNumber(value); ok {
		return n != 0
	}
	return true
}

func coerceBool(value any) (bool, bool) {
	if isNull(value) {
		return false, false
	}
	if s, ok := value.(string); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed, true
		}
	}
	return truthy(value), true
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprint(value)
}

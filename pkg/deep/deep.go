// Package deep provides structural copy, comparison and merge helpers for the
// nested records the form engine binds to, plus dot-path accessors. Records are
// map[string]any and lists are []any, which is also what JSON and YAML decoders
// produce, so documents can flow in without conversion.
package deep

import (
	"reflect"
	"regexp"
	"time"
)

// Data is a nested record addressed by dot-paths.
type Data = map[string]any

// Clone returns a structural copy of value. Records, lists, times and
// compiled patterns are copied; any other non-plain value (structs, pointers,
// typed slices) is returned as-is.
func Clone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		if typed == nil {
			return typed
		}
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = Clone(v)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = Clone(v)
		}
		return out
	case *time.Time:
		if typed == nil {
			return typed
		}
		t := *typed
		return &t
	case *regexp.Regexp:
		if typed == nil {
			return typed
		}
		return regexp.MustCompile(typed.String())
	default:
		// time.Time and primitives are values already.
		return typed
	}
}

// CloneData clones a record. A nil record clones to an empty one.
func CloneData(data Data) Data {
	if data == nil {
		return Data{}
	}
	return Clone(data).(map[string]any)
}

// Equal reports structural equality. Record key order is irrelevant, numbers
// compare by value across Go numeric types, times compare by instant and
// patterns by source.
func Equal(a, b any) bool {
	if sameReference(a, b) {
		return true
	}

	switch left := a.(type) {
	case nil:
		return isNilPointer(b)
	case map[string]any:
		right, ok := b.(map[string]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for k, lv := range left {
			rv, exists := right[k]
			if !exists || !Equal(lv, rv) {
				return false
			}
		}
		return true
	case []any:
		right, ok := b.([]any)
		if !ok || len(left) != len(right) {
			return false
		}
		for i := range left {
			if !Equal(left[i], right[i]) {
				return false
			}
		}
		return true
	case time.Time:
		right, ok := asTime(b)
		return ok && left.Equal(right)
	case *time.Time:
		if left == nil {
			return isNilPointer(b)
		}
		right, ok := asTime(b)
		return ok && left.Equal(right)
	case *regexp.Regexp:
		right, ok := b.(*regexp.Regexp)
		if !ok || left == nil || right == nil {
			return ok && left == nil && right == nil
		}
		return left.String() == right.String()
	}

	if ln, ok := asNumber(a); ok {
		rn, ok := asNumber(b)
		return ok && ln == rn
	}
	if b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// sameReference is the fast path: identical records or lists are equal
// without walking them.
func sameReference(a, b any) bool {
	switch left := a.(type) {
	case map[string]any:
		right, ok := b.(map[string]any)
		return ok && left != nil && right != nil && reflect.ValueOf(left).Pointer() == reflect.ValueOf(right).Pointer()
	case []any:
		right, ok := b.([]any)
		if !ok || len(left) != len(right) || len(left) == 0 {
			return false
		}
		return &left[0] == &right[0]
	}
	return false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func isNilPointer(v any) bool {
	t, ok := v.(*time.Time)
	return v == nil || (ok && t == nil)
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Merge deep-merges sources over target into a fresh record; later sources
// win. Lists are replaced wholesale, records merge key-wise and everything else
// overwrites. None of the inputs is mutated.
func Merge(target Data, sources ...Data) Data {
	out := CloneData(target)
	for _, src := range sources {
		mergeInto(out, src)
	}
	return out
}

func mergeInto(dst, src Data) {
	for key, value := range src {
		incoming, isRecord := value.(map[string]any)
		existing, hasRecord := dst[key].(map[string]any)
		if isRecord && hasRecord && incoming != nil && existing != nil {
			mergeInto(existing, incoming)
			continue
		}
		dst[key] = Clone(value)
	}
}

package deep

import (
	"sort"
	"strings"
)

// Get resolves a dot-path. The second result is false when any segment is
// missing or an intermediate segment is not a record.
func Get(root Data, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := node[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Set writes value at path. Every intermediate segment must already exist as
// a record; otherwise Set leaves root untouched and returns false.
func Set(root Data, path string, value any) bool {
	parent, last, ok := parentOf(root, path)
	if !ok {
		return false
	}
	parent[last] = value
	return true
}

// Create ensures every segment of path except the last exists as a record.
// Existing records are kept; a segment holding a non-record value makes
// Create return false without changing it.
func Create(root Data, path string) bool {
	if root == nil || path == "" {
		return false
	}
	segments := strings.Split(path, ".")
	current := root
	for _, segment := range segments[:len(segments)-1] {
		if segment == "" {
			return false
		}
		next, exists := current[segment]
		if !exists || next == nil {
			child := make(map[string]any)
			current[segment] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return false
		}
		current = child
	}
	return segments[len(segments)-1] != ""
}

func parentOf(root Data, path string) (Data, string, bool) {
	if root == nil || path == "" {
		return nil, "", false
	}
	segments := strings.Split(path, ".")
	current := root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := current[segment].(map[string]any)
		if !ok || child == nil {
			return nil, "", false
		}
		current = child
	}
	last := segments[len(segments)-1]
	if last == "" {
		return nil, "", false
	}
	return current, last, true
}

// Paths lists the dot-paths of every non-record value in root, sorted.
// Empty records are reported by their own path.
func Paths(root Data) []string {
	var out []string
	collectPaths("", root, &out)
	sort.Strings(out)
	return out
}

func collectPaths(prefix string, node Data, out *[]string) {
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		child, ok := value.(map[string]any)
		if ok && len(child) > 0 {
			collectPaths(path, child, out)
			continue
		}
		*out = append(*out, path)
	}
}

package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDescriptor reports a node whose discriminator and payload
	// disagree.
	ErrInvalidDescriptor = errors.New("schema: invalid descriptor")
	// ErrDuplicateName reports two leaves bound to the same path.
	ErrDuplicateName = errors.New("schema: duplicate leaf name")
)

// Flatten lists every leaf of the tree in depth-first order, including leaves
// under conditional layouts.
func Flatten(tree []Descriptor) []Leaf {
	var out []Leaf
	walkLeaves(tree, func(leaf Leaf) {
		out = append(out, leaf)
	})
	return out
}

// CountLeaves reports the number of stateful leaves below the tree.
func CountLeaves(tree []Descriptor) int {
	count := 0
	walkLeaves(tree, func(Leaf) { count++ })
	return count
}

func walkLeaves(tree []Descriptor, fn func(Leaf)) {
	for _, node := range tree {
		switch node.Node {
		case NodeLeaf:
			if node.Leaf != nil {
				fn(*node.Leaf)
			}
		case NodeLayout:
			if node.Layout != nil {
				walkLeaves(node.Layout.Children, fn)
			}
		}
	}
}

// Validate checks the tree shape: every node carries the payload its
// discriminator names, leaves have names without empty segments, and no two
// leaves share a path.
func Validate(tree []Descriptor) error {
	seen := make(map[string]struct{})
	return validateNodes(tree, "", seen)
}

func validateNodes(tree []Descriptor, prefix string, seen map[string]struct{}) error {
	for idx, node := range tree {
		where := joinIndex(prefix, idx)
		switch node.Node {
		case NodeLeaf:
			if node.Leaf == nil || node.Layout != nil {
				return fmt.Errorf("%w at %s: leaf payload missing", ErrInvalidDescriptor, where)
			}
			name := strings.TrimSpace(node.Leaf.Name)
			if name == "" {
				return fmt.Errorf("%w at %s: leaf name is required", ErrInvalidDescriptor, where)
			}
			for _, segment := range strings.Split(name, ".") {
				if segment == "" {
					return fmt.Errorf("%w at %s: empty segment in %q", ErrInvalidDescriptor, where, name)
				}
			}
			if node.Leaf.Compute != nil && node.Leaf.ComputeAsync != nil {
				return fmt.Errorf("%w at %s: %q sets both Compute and ComputeAsync", ErrInvalidDescriptor, where, name)
			}
			if _, dup := seen[name]; dup {
				return fmt.Errorf("%w: %q", ErrDuplicateName, name)
			}
			seen[name] = struct{}{}
		case NodeLayout:
			if node.Layout == nil || node.Leaf != nil {
				return fmt.Errorf("%w at %s: layout payload missing", ErrInvalidDescriptor, where)
			}
			if err := validateNodes(node.Layout.Children, where, seen); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w at %s: unknown node type %d", ErrInvalidDescriptor, where, node.Node)
		}
	}
	return nil
}

func joinIndex(prefix string, idx int) string {
	if prefix == "" {
		return fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("%s.%d", prefix, idx)
}

package schemafile

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/visibility/expr"
)

var kinds = map[string]schema.Kind{
	"":            schema.KindText,
	"text":        schema.KindText,
	"string":      schema.KindText,
	"number":      schema.KindNumber,
	"integer":     schema.KindNumber,
	"boolean":     schema.KindBoolean,
	"bool":        schema.KindBoolean,
	"select":      schema.KindSelect,
	"multiselect": schema.KindMultiSelect,
	"custom":      schema.KindCustom,
}

// Descriptors compiles the document into a descriptor tree. Rule strings,
// validators and transform names are resolved here, so a document that
// builds never fails at evaluation time.
func (d Document) Descriptors() ([]schema.Descriptor, error) {
	tree, err := buildNodes(d.Fields, d.Source)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(tree); err != nil {
		return nil, fmt.Errorf("schemafile: %s: %w", d.Source, err)
	}
	return tree, nil
}

func buildNodes(nodes []NodeSpec, source string) ([]schema.Descriptor, error) {
	out := make([]schema.Descriptor, 0, len(nodes))
	for _, node := range nodes {
		var (
			desc schema.Descriptor
			err  error
		)
		if node.IsGroup() {
			desc, err = buildGroup(node, source)
		} else {
			desc, err = buildLeaf(node, source)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, desc)
	}
	return out, nil
}

func buildGroup(node NodeSpec, source string) (schema.Descriptor, error) {
	children, err := buildNodes(node.Children, source)
	if err != nil {
		return schema.Descriptor{}, err
	}
	layout := schema.Layout{
		ID:        node.Group,
		Children:  children,
		Container: node.Container,
		Hints:     cloneHints(node.Hints),
	}
	if node.Label != "" {
		if layout.Hints == nil {
			layout.Hints = make(map[string]string, 1)
		}
		layout.Hints["label"] = node.Label
	}
	if strings.TrimSpace(node.Visible) != "" {
		visible, err := expr.Flag(node.Visible)
		if err != nil {
			return schema.Descriptor{}, fmt.Errorf("schemafile: %s group %q visible: %w", source, node.Group, err)
		}
		layout.IsVisible = visible
	}
	return schema.LayoutNode(layout), nil
}

func buildLeaf(node NodeSpec, source string) (schema.Descriptor, error) {
	name := strings.TrimSpace(node.Name)
	kind, ok := kinds[strings.ToLower(strings.TrimSpace(node.Kind))]
	if !ok {
		return schema.Descriptor{}, fmt.Errorf("schemafile: %s field %q: unknown kind %q", source, name, node.Kind)
	}

	leaf := schema.Leaf{
		Name:      name,
		Kind:      kind,
		Label:     node.Label,
		Default:   node.Default,
		Immediate: node.Immediate,
		Adapter:   node.Adapter,
		Hints:     cloneHints(node.Hints),
	}

	rules := []struct {
		label string
		rule  string
		dst   *schema.Flag
	}{
		{"visible", node.Visible, &leaf.IsVisible},
		{"disabled", node.Disabled, &leaf.IsDisabled},
		{"readonly", node.Readonly, &leaf.IsReadonly},
	}
	for _, r := range rules {
		if strings.TrimSpace(r.rule) == "" {
			continue
		}
		flag, err := expr.Flag(r.rule)
		if err != nil {
			return schema.Descriptor{}, fmt.Errorf("schemafile: %s field %q %s: %w", source, name, r.label, err)
		}
		*r.dst = flag
	}

	if node.Validate != nil {
		check, err := buildCheck(name, *node.Validate)
		if err != nil {
			return schema.Descriptor{}, fmt.Errorf("schemafile: %s field %q validate: %w", source, name, err)
		}
		leaf.IsInvalid = check
	}

	if len(node.Transform) > 0 {
		transform, err := buildTransform(node.Transform)
		if err != nil {
			return schema.Descriptor{}, fmt.Errorf("schemafile: %s field %q: %w", source, name, err)
		}
		leaf.Transform = transform
	}

	if node.Debounce != nil {
		leaf.Debounce = &schema.DebounceOptions{
			Wait:     time.Duration(node.Debounce.WaitMS) * time.Millisecond,
			MaxWait:  time.Duration(node.Debounce.MaxWaitMS) * time.Millisecond,
			Leading:  node.Debounce.Leading,
			Trailing: node.Debounce.Trailing,
		}
	}
	return schema.LeafNode(leaf), nil
}

func cloneHints(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

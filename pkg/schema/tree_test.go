package schema_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/schema"
)

func sampleTree() []schema.Descriptor {
	return []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "title", Kind: schema.KindText}),
		schema.Group("profile",
			schema.LeafNode(schema.Leaf{Name: "profile.name", Kind: schema.KindText}),
			schema.When("extra", func(data deep.Data, _ any) bool { return true },
				schema.LeafNode(schema.Leaf{Name: "profile.age", Kind: schema.KindNumber}),
			),
		),
		schema.Group("empty"),
	}
}

func TestFlattenDepthFirst(t *testing.T) {
	var names []string
	for _, leaf := range schema.Flatten(sampleTree()) {
		names = append(names, leaf.Name)
	}
	want := []string{"title", "profile.name", "profile.age"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
	if got := schema.CountLeaves(sampleTree()); got != 3 {
		t.Fatalf("CountLeaves = %d, want 3", got)
	}
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	if err := schema.Validate(sampleTree()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsMalformedNodes(t *testing.T) {
	tests := []struct {
		name string
		tree []schema.Descriptor
		want error
	}{
		{
			name: "duplicate",
			tree: []schema.Descriptor{
				schema.LeafNode(schema.Leaf{Name: "a"}),
				schema.Group("g", schema.LeafNode(schema.Leaf{Name: "a"})),
			},
			want: schema.ErrDuplicateName,
		},
		{
			name: "mismatched discriminator",
			tree: []schema.Descriptor{{Node: schema.NodeLeaf, Layout: &schema.Layout{}}},
			want: schema.ErrInvalidDescriptor,
		},
		{
			name: "empty segment",
			tree: []schema.Descriptor{schema.LeafNode(schema.Leaf{Name: "a..b"})},
			want: schema.ErrInvalidDescriptor,
		},
		{
			name: "unknown node",
			tree: []schema.Descriptor{{}},
			want: schema.ErrInvalidDescriptor,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(tc.tree)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tc.want)
			}
		})
	}
}

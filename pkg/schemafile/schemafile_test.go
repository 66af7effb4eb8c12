package schemafile_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/schema"
	"github.com/goliatone/go-formbind/pkg/schemafile"
)

const signupYAML = `
id: signup
title: Sign up
fields:
  - name: user.email
    label: Email
    transform: [trim, lower]
    validate:
      required: true
      pattern: "^[^@]+@[^@]+$"
  - name: user.type
    kind: select
    immediate: true
    hints: {options: "personal,business"}
  - name: user.age
    kind: number
    transform: [number]
    debounce: {waitMs: 300, maxWaitMs: 1000}
    validate:
      integer: true
      rule: "user.age >= 18"
      message: adults only
  - group: company
    visible: "user.type == business"
    children:
      - name: company.name
        readonly: "extras.locked"
        validate: {required: true, maxLength: 5}
`

func mustLeaf(t *testing.T, tree []schema.Descriptor, name string) schema.Leaf {
	t.Helper()
	for _, leaf := range schema.Flatten(tree) {
		if leaf.Name == name {
			return leaf
		}
	}
	t.Fatalf("leaf %q not found", name)
	return schema.Leaf{}
}

func TestParseYAMLAndJSON(t *testing.T) {
	fromYAML, err := schemafile.Parse([]byte(signupYAML), "forms/signup.yaml")
	require.NoError(t, err)
	require.Equal(t, "signup", fromYAML.ID)
	require.Equal(t, "forms/signup.yaml", fromYAML.Source)
	require.Len(t, fromYAML.Fields, 4)
	require.True(t, fromYAML.Fields[3].IsGroup())

	fromJSON, err := schemafile.Parse([]byte(`{"fields":[{"name":"title","validate":{"minLength":2}}]}`), "post.json")
	require.NoError(t, err)
	require.Equal(t, "post", fromJSON.ID, "id defaults to the file name")

	two := 2
	want := []schemafile.NodeSpec{{Name: "title", Validate: &schemafile.ValidateSpec{MinLength: &two}}}
	if diff := cmp.Diff(want, fromJSON.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	sniffed, err := schemafile.Parse([]byte("fields:\n  - name: a\n"), "inline")
	require.NoError(t, err)
	require.Equal(t, "a", sniffed.Fields[0].Name)
}

func TestParseRejectsMalformedNodes(t *testing.T) {
	_, err := schemafile.Parse([]byte("fields:\n  - label: nameless\n"), "bad.yaml")
	require.ErrorContains(t, err, "needs a name or a group")

	_, err = schemafile.Parse([]byte("fields:\n  - name: a\n    group: g\n"), "bad.yaml")
	require.ErrorContains(t, err, "sets both name and group")

	_, err = schemafile.Parse([]byte("   "), "empty.yaml")
	require.ErrorContains(t, err, "is empty")
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/signup.yaml": {Data: []byte(signupYAML)},
		"forms/post.json":   {Data: []byte(`{"fields":[{"name":"title"}]}`)},
		"forms/README.txt":  {Data: []byte("not a schema")},
	}

	store, err := schemafile.LoadFS(context.Background(), fsys)
	require.NoError(t, err)
	require.Equal(t, []string{"post", "signup"}, store.IDs())

	doc, ok := store.Document("post")
	require.True(t, ok)
	require.Equal(t, "forms/post.json", doc.Source)

	fsys["other/post.yml"] = &fstest.MapFile{Data: []byte("fields:\n  - name: body\n")}
	_, err = schemafile.LoadFS(context.Background(), fsys)
	require.ErrorContains(t, err, `duplicate document "post"`)

	empty, err := schemafile.LoadFS(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, empty.Empty())
}

func TestDescriptorsCompileRules(t *testing.T) {
	doc, err := schemafile.Parse([]byte(signupYAML), "signup.yaml")
	require.NoError(t, err)
	tree, err := doc.Descriptors()
	require.NoError(t, err)

	group := tree[3]
	require.Equal(t, schema.NodeLayout, group.Node)
	require.True(t, group.Layout.Conditional())
	require.False(t, group.Layout.IsVisible(deep.Data{"user": deep.Data{"type": "personal"}}, nil))
	require.True(t, group.Layout.IsVisible(deep.Data{"user": deep.Data{"type": "business"}}, nil))

	company := mustLeaf(t, tree, "company.name")
	require.Equal(t, schema.KindText, company.Kind)
	require.True(t, company.IsReadonly(nil, map[string]any{"locked": true}))
	require.False(t, company.IsReadonly(nil, nil))

	kind := mustLeaf(t, tree, "user.type")
	require.Equal(t, schema.KindSelect, kind.Kind)
	require.True(t, kind.Immediate)
	require.Equal(t, "personal,business", kind.Hints["options"])

	age := mustLeaf(t, tree, "user.age")
	require.Equal(t, &schema.DebounceOptions{Wait: 300 * time.Millisecond, MaxWait: time.Second}, age.Debounce)
}

func TestDescriptorsValidators(t *testing.T) {
	doc, err := schemafile.Parse([]byte(signupYAML), "signup.yaml")
	require.NoError(t, err)
	tree, err := doc.Descriptors()
	require.NoError(t, err)

	email := mustLeaf(t, tree, "user.email").IsInvalid
	require.Equal(t, "is required", email(deep.Data{"user": deep.Data{"email": "  "}}, nil))
	require.Equal(t, "has an invalid format", email(deep.Data{"user": deep.Data{"email": "nope"}}, nil))
	require.Empty(t, email(deep.Data{"user": deep.Data{"email": "a@b.c"}}, nil))

	age := mustLeaf(t, tree, "user.age").IsInvalid
	require.Equal(t, "adults only", age(deep.Data{"user": deep.Data{"age": 17.5}}, nil))
	require.Equal(t, "adults only", age(deep.Data{"user": deep.Data{"age": 12}}, nil))
	require.Empty(t, age(deep.Data{"user": deep.Data{"age": 30}}, nil))

	company := mustLeaf(t, tree, "company.name").IsInvalid
	require.Equal(t, "must be at most 5 characters", company(deep.Data{"company": deep.Data{"name": "Acme Corp"}}, nil))
	require.Empty(t, company(deep.Data{"company": deep.Data{"name": "Acme"}}, nil))
}

func TestDescriptorsTransforms(t *testing.T) {
	doc := schemafile.Document{Source: "inline", Fields: []schemafile.NodeSpec{
		{Name: "email", Transform: []string{"trim", "lower"}},
		{Name: "bio", Transform: []string{"sanitize"}},
		{Name: "count", Kind: "integer", Transform: []string{"number"}},
	}}
	tree, err := doc.Descriptors()
	require.NoError(t, err)

	require.Equal(t, "foo@x.com", mustLeaf(t, tree, "email").Transform("  Foo@X.com "))
	require.Equal(t, "Hi", mustLeaf(t, tree, "bio").Transform("<b>Hi</b>"))
	require.Equal(t, 42, mustLeaf(t, tree, "count").Transform("42"))
	require.Equal(t, "4x", mustLeaf(t, tree, "count").Transform("4x"))
	require.Equal(t, true, mustLeaf(t, tree, "email").Transform(true))
}

func TestDescriptorsErrors(t *testing.T) {
	cases := []struct {
		name string
		node schemafile.NodeSpec
		want string
	}{
		{"unknown kind", schemafile.NodeSpec{Name: "a", Kind: "date"}, `unknown kind "date"`},
		{"unknown transform", schemafile.NodeSpec{Name: "a", Transform: []string{"rot13"}}, `unknown transform "rot13"`},
		{"bad rule", schemafile.NodeSpec{Name: "a", Visible: "a =="}, "visible"},
		{"bad pattern", schemafile.NodeSpec{Name: "a", Validate: &schemafile.ValidateSpec{Pattern: "("}}, "pattern"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := schemafile.Document{Source: "inline", Fields: []schemafile.NodeSpec{tc.node}}
			_, err := doc.Descriptors()
			require.ErrorContains(t, err, tc.want)
		})
	}

	dup := schemafile.Document{Source: "inline", Fields: []schemafile.NodeSpec{{Name: "a"}, {Name: "a"}}}
	_, err := dup.Descriptors()
	require.Error(t, err)
}

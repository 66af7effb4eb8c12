package visibility_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/visibility"
)

type roles map[string]bool

func TestNewContextExposesRecordPayloads(t *testing.T) {
	data := deep.Data{"name": "ada"}

	cases := []struct {
		name    string
		payload any
		want    map[string]any
	}{
		{name: "nil", payload: nil, want: nil},
		{name: "record", payload: map[string]any{"plan": "pro"}, want: map[string]any{"plan": "pro"}},
		{name: "strings", payload: map[string]string{"role": "admin"}, want: map[string]any{"role": "admin"}},
		{name: "named map", payload: roles{"admin": true}, want: map[string]any{"admin": true}},
		{name: "scalar", payload: 42, want: nil},
	}

	for _, tc := range cases {
		ctx := visibility.NewContext(data, tc.payload)
		if diff := cmp.Diff(tc.want, ctx.Extras); diff != "" {
			t.Fatalf("%s: extras mismatch (-want +got):\n%s", tc.name, diff)
		}
		if ctx.Values["name"] != "ada" {
			t.Fatalf("%s: values not carried", tc.name)
		}
	}
}

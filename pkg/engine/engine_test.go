package engine_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formbind/pkg/adapter"
	"github.com/goliatone/go-formbind/pkg/debounce"
	"github.com/goliatone/go-formbind/pkg/deep"
	"github.com/goliatone/go-formbind/pkg/engine"
	"github.com/goliatone/go-formbind/pkg/field"
	"github.com/goliatone/go-formbind/pkg/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type change struct {
	data    deep.Data
	initial bool
}

type recorder struct {
	mu      sync.Mutex
	changes []change
	ready   int
	invalid []string
}

func (r *recorder) onChange(data deep.Data, initial bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change{data: data, initial: initial})
}

func (r *recorder) onReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready++
}

func (r *recorder) onInvalid(name, reason string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid = append(r.invalid, name+": "+reason)
}

func (r *recorder) edits() []deep.Data {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []deep.Data
	for _, c := range r.changes {
		if !c.initial {
			out = append(out, c.data)
		}
	}
	return out
}

func (r *recorder) readyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	clock  *testClock
	frames *debounce.FrameScheduler
	rec    *recorder
}

func newFixture() *fixture {
	clk := &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return &fixture{
		clock:  clk,
		frames: debounce.NewFrameScheduler(debounce.WithClock(clk.Now)),
		rec:    &recorder{},
	}
}

func (f *fixture) options(extra ...engine.Option) []engine.Option {
	cfg := engine.DefaultConfig()
	cfg.Scheduler = f.frames
	cfg.ReadonlyUntilFocus = false
	opts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithOnChange(f.rec.onChange),
		engine.WithOnReady(f.rec.onReady),
		engine.WithOnInvalid(f.rec.onInvalid),
	}
	return append(opts, extra...)
}

func (f *fixture) wait(d time.Duration) {
	f.clock.advance(d)
	f.frames.Tick()
}

func render(t *testing.T, tree []schema.Descriptor, opts ...engine.Option) *engine.Engine {
	t.Helper()
	eng, err := engine.Render(context.Background(), tree, opts...)
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func mustField(t *testing.T, eng *engine.Engine, name string) *field.Controller {
	t.Helper()
	ctrl, ok := eng.Field(name)
	require.True(t, ok, "field %q not mounted", name)
	return ctrl
}

func notNumber(path string) schema.Check {
	return func(data deep.Data, _ any) string {
		value, _ := deep.Get(data, path)
		switch v := value.(type) {
		case int, float64:
			return ""
		case string:
			if _, err := strconv.ParseFloat(v, 64); err == nil {
				return ""
			}
		}
		return "not a number"
	}
}

func TestRenderCommitsValidEditOnce(t *testing.T) {
	f := newFixture()
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "age", Kind: schema.KindNumber, IsInvalid: notNumber("age")}),
	}
	eng := render(t, tree, f.options()...)

	require.True(t, eng.Ready())
	require.Equal(t, 1, f.rec.readyCount())
	require.Len(t, f.rec.changes, 1)
	require.True(t, f.rec.changes[0].initial)
	require.Equal(t, deep.Data{"age": 0}, f.rec.changes[0].data)

	age := mustField(t, eng, "age")
	age.OnChange("1", adapter.ChangeOptions{})
	age.OnChange("12", adapter.ChangeOptions{})
	f.wait(field.DefaultWait)

	if diff := cmp.Diff([]deep.Data{{"age": "12"}}, f.rec.edits()); diff != "" {
		t.Fatalf("edits mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, deep.Data{"age": "12"}, eng.Data())

	age.OnChange("abc", adapter.ChangeOptions{})
	f.wait(field.DefaultWait)

	require.Len(t, f.rec.edits(), 1, "invalid edit must not reach the shared data")
	require.Equal(t, []string{"age: not a number"}, f.rec.invalid)
	require.Equal(t, deep.Data{"age": "12"}, eng.Data())
	require.Equal(t, "not a number", age.Props().Invalid)
}

func TestReadyWaitsForAsyncLeaves(t *testing.T) {
	f := newFixture()
	releaseA := make(chan struct{})
	releaseB := make(chan struct{})
	async := func(release chan struct{}, value any) schema.AsyncComputeFunc {
		return func(ctx context.Context, _ deep.Data, _ any) (any, error) {
			select {
			case <-release:
				return value, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	tree := []schema.Descriptor{
		schema.Group("totals",
			schema.LeafNode(schema.Leaf{Name: "a", ComputeAsync: async(releaseA, "A")}),
			schema.LeafNode(schema.Leaf{Name: "b", ComputeAsync: async(releaseB, "B")}),
		),
		schema.LeafNode(schema.Leaf{Name: "c"}),
	}
	eng := render(t, tree, f.options()...)

	require.False(t, eng.Ready())
	_, ok := eng.View()
	require.False(t, ok)

	b := mustField(t, eng, "b")
	close(releaseB)
	require.Eventually(t, b.Hydrated, time.Second, time.Millisecond)
	require.False(t, eng.Ready())

	close(releaseA)
	require.Eventually(t, func() bool { return f.rec.readyCount() == 1 }, time.Second, time.Millisecond)
	require.True(t, eng.Ready())

	view, ok := eng.View()
	require.True(t, ok)
	root, ok := view.(adapter.Group)
	require.True(t, ok)
	require.Len(t, root.Children, 2)
	group := root.Children[0].(adapter.Group)
	require.Equal(t, "totals", group.ID)
	require.Equal(t, "A", group.Children[0].(adapter.Props).Value)
}

func required(path string) schema.Check {
	return func(data deep.Data, _ any) string {
		if value, _ := deep.Get(data, path); value == nil || value == "" {
			return "required"
		}
		return ""
	}
}

func TestTopLevelValidationWithholdsOnChange(t *testing.T) {
	f := newFixture()
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "password", Immediate: true}),
		schema.LeafNode(schema.Leaf{
			Name: "confirm",
			IsInvalid: func(data deep.Data, _ any) string {
				if data["password"] != data["confirm"] {
					return "does not match"
				}
				return ""
			},
		}),
	}
	eng := render(t, tree, f.options()...)
	confirm := mustField(t, eng, "confirm")

	mustField(t, eng, "password").OnChange("secret", adapter.ChangeOptions{})

	require.Empty(t, f.rec.edits(), "a globally invalid object must not reach OnChange")
	require.Equal(t, deep.Data{"password": "secret", "confirm": ""}, eng.Data())
	require.Equal(t, "does not match", confirm.State().Invalid)
	require.Empty(t, confirm.Props().Invalid, "untouched field shows no error")

	confirm.OnChange("secret", adapter.ChangeOptions{})
	f.wait(field.DefaultWait)

	if diff := cmp.Diff([]deep.Data{{"password": "secret", "confirm": "secret"}}, f.rec.edits()); diff != "" {
		t.Fatalf("edits mismatch (-want +got):\n%s", diff)
	}
	require.Empty(t, confirm.State().Invalid)
	require.Empty(t, f.rec.invalid)
}

func TestEditsProgressWhileOtherFieldsRequired(t *testing.T) {
	f := newFixture()
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "name", Immediate: true, IsInvalid: required("name")}),
		schema.LeafNode(schema.Leaf{Name: "email", Immediate: true, IsInvalid: required("email")}),
		schema.LeafNode(schema.Leaf{Name: "nick", Immediate: true}),
	}
	eng := render(t, tree, f.options()...)

	mustField(t, eng, "name").OnChange("Ann", adapter.ChangeOptions{})
	require.Equal(t, deep.Data{"name": "Ann", "email": "", "nick": ""}, eng.Data())
	require.Empty(t, f.rec.edits())
	require.Equal(t, "required", mustField(t, eng, "email").State().Invalid)

	mustField(t, eng, "email").OnChange("a@b.c", adapter.ChangeOptions{})
	mustField(t, eng, "nick").OnChange("z", adapter.ChangeOptions{})

	want := []deep.Data{
		{"name": "Ann", "email": "a@b.c", "nick": ""},
		{"name": "Ann", "email": "a@b.c", "nick": "z"},
	}
	if diff := cmp.Diff(want, f.rec.edits()); diff != "" {
		t.Fatalf("edits mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "Ann", mustField(t, eng, "name").Props().Value)
	require.Empty(t, f.rec.invalid)
}

func TestOverlappingPathsLastFlushWins(t *testing.T) {
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{
			Name:    "address",
			Kind:    schema.KindCustom,
			Default: deep.Data{"city": "", "zip": ""},
		}),
		schema.LeafNode(schema.Leaf{Name: "address.city"}),
	}

	tests := []struct {
		name     string
		order    []string
		want     deep.Data
		wantCity any
	}{
		{
			name:     "parent flushed last",
			order:    []string{"address.city", "address"},
			want:     deep.Data{"address": deep.Data{"city": "Porto", "zip": "4000"}},
			wantCity: "Porto",
		},
		{
			name:     "child flushed last",
			order:    []string{"address", "address.city"},
			want:     deep.Data{"address": deep.Data{"city": "Lisbon", "zip": "4000"}},
			wantCity: "Lisbon",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			eng := render(t, tree, f.options()...)
			address := mustField(t, eng, "address")
			city := mustField(t, eng, "address.city")

			address.OnChange(deep.Data{"city": "Porto", "zip": "4000"}, adapter.ChangeOptions{})
			city.OnChange("Lisbon", adapter.ChangeOptions{})
			require.Equal(t, "Lisbon", city.State().Value)

			for _, name := range tc.order {
				mustField(t, eng, name).Flush()
			}

			if diff := cmp.Diff(tc.want, eng.Data()); diff != "" {
				t.Fatalf("data mismatch (-want +got):\n%s", diff)
			}
			require.Equal(t, tc.wantCity, city.State().Value)
			require.Equal(t, tc.want["address"], address.State().Value)
			require.Len(t, f.rec.edits(), 2)
		})
	}
}

func TestConditionalLayoutRemounts(t *testing.T) {
	f := newFixture()
	isPro := func(data deep.Data, _ any) bool { return data["plan"] == "pro" }
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "plan", Kind: schema.KindSelect, Immediate: true}),
		schema.When("pro", isPro,
			schema.LeafNode(schema.Leaf{Name: "seats", Kind: schema.KindNumber, Default: 5}),
		),
	}
	eng := render(t, tree, f.options(engine.WithInitialData(deep.Data{"plan": "free"}))...)

	require.True(t, eng.Ready())
	_, ok := eng.Field("seats")
	require.False(t, ok)
	snap := eng.Snapshot()
	require.False(t, snap.Children[1].Shown)

	mustField(t, eng, "plan").OnChange("pro", adapter.ChangeOptions{})

	seats := mustField(t, eng, "seats")
	require.Equal(t, 5, seats.State().Value)
	require.Equal(t, []string{"plan", "seats"}, eng.Fields())
	require.Equal(t, 1, f.rec.readyCount())

	mustField(t, eng, "plan").OnChange("free", adapter.ChangeOptions{})

	_, ok = eng.Field("seats")
	require.False(t, ok)
	seats.OnChange(9, adapter.ChangeOptions{Immediate: true})
	require.Equal(t, 5, eng.Data()["seats"], "unmounted leaf must ignore edits")
}

func TestSetDataFromOnChange(t *testing.T) {
	f := newFixture()
	var eng *engine.Engine
	normalize := func(data deep.Data, initial bool) {
		if initial {
			return
		}
		name, _ := data["name"].(string)
		if trimmed := strings.TrimSpace(name); trimmed != name {
			next := deep.CloneData(data)
			next["name"] = trimmed
			eng.SetData(next)
		}
	}
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "name", Immediate: true}),
	}
	eng = render(t, tree, f.options(engine.WithOnChange(normalize))...)

	mustField(t, eng, "name").OnChange("  ada ", adapter.ChangeOptions{})

	require.Equal(t, deep.Data{"name": "ada"}, eng.Data())
	require.Equal(t, "ada", mustField(t, eng, "name").State().Value)
}

func TestSetPayloadReevaluatesRules(t *testing.T) {
	f := newFixture()
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{
			Name:       "name",
			IsDisabled: func(_ deep.Data, payload any) bool { return payload == "locked" },
		}),
	}
	eng := render(t, tree, f.options(engine.WithPayload("open"))...)
	require.False(t, mustField(t, eng, "name").State().Disabled)

	eng.SetPayload("locked")

	require.True(t, mustField(t, eng, "name").State().Disabled)
}

func TestFlushCommitsPendingEdits(t *testing.T) {
	f := newFixture()
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "first"}),
		schema.LeafNode(schema.Leaf{Name: "last"}),
	}
	eng := render(t, tree, f.options()...)

	mustField(t, eng, "first").OnChange("ada", adapter.ChangeOptions{})
	mustField(t, eng, "last").OnChange("lovelace", adapter.ChangeOptions{})
	eng.Flush()

	require.Equal(t, deep.Data{"first": "ada", "last": "lovelace"}, eng.Data())
	require.Len(t, f.rec.edits(), 2)
}

func TestSettleWaitsForAnotherDrain(t *testing.T) {
	f := newFixture()
	gate := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	hold := func(_ deep.Data, initial bool) {
		if initial {
			return
		}
		once.Do(func() {
			close(entered)
			<-gate
		})
	}
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "a", Immediate: true}),
		schema.LeafNode(schema.Leaf{Name: "b"}),
	}
	eng := render(t, tree, f.options(engine.WithOnChange(hold))...)
	a := mustField(t, eng, "a")
	b := mustField(t, eng, "b")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Drains the dispatcher and parks inside the OnChange callback.
		a.OnChange("x", adapter.ChangeOptions{})
	}()
	<-entered
	b.OnChange("y", adapter.ChangeOptions{})

	settled := make(chan error, 1)
	go func() { settled <- eng.Settle(context.Background()) }()

	select {
	case err := <-settled:
		t.Fatalf("Settle returned %v before the commit ran", err)
	case <-time.After(20 * time.Millisecond):
	}
	require.Equal(t, "", eng.Data()["b"])

	close(gate)
	require.NoError(t, <-settled)
	require.Equal(t, deep.Data{"a": "x", "b": "y"}, eng.Data())
	wg.Wait()
}

func TestSettleAfterClose(t *testing.T) {
	f := newFixture()
	eng := render(t, []schema.Descriptor{schema.LeafNode(schema.Leaf{Name: "a"})}, f.options()...)
	eng.Close()

	require.ErrorIs(t, eng.Settle(context.Background()), engine.ErrClosed)
}

func TestCloseStopsEngine(t *testing.T) {
	f := newFixture()
	tree := []schema.Descriptor{schema.LeafNode(schema.Leaf{Name: "name"})}
	eng := render(t, tree, f.options()...)
	name := mustField(t, eng, "name")

	eng.Close()

	require.ErrorIs(t, eng.Err(), engine.ErrClosed)
	_, ok := eng.View()
	require.False(t, ok)
	name.OnChange("ada", adapter.ChangeOptions{Immediate: true})
	require.Empty(t, f.rec.edits())
	require.Empty(t, eng.Fields())
}

func TestRenderRejectsDuplicateNames(t *testing.T) {
	tree := []schema.Descriptor{
		schema.LeafNode(schema.Leaf{Name: "name"}),
		schema.Group("again", schema.LeafNode(schema.Leaf{Name: "name"})),
	}
	_, err := engine.Render(context.Background(), tree)
	require.ErrorIs(t, err, schema.ErrDuplicateName)
}

func TestRenderReportsBindingError(t *testing.T) {
	tree := []schema.Descriptor{schema.LeafNode(schema.Leaf{Name: "profile.name"})}
	_, err := engine.Render(context.Background(), tree,
		engine.WithInitialData(deep.Data{"profile": "flat"}),
	)
	require.ErrorIs(t, err, engine.ErrBinding)
	var bindErr *engine.BindingError
	require.True(t, errors.As(err, &bindErr))
	require.Equal(t, "profile.name", bindErr.Path)
}

func TestEmptyTreeIsReadyImmediately(t *testing.T) {
	f := newFixture()
	eng := render(t, []schema.Descriptor{schema.Group("empty")}, f.options()...)

	require.True(t, eng.Ready())
	view, ok := eng.View()
	require.True(t, ok)
	require.Len(t, view.(adapter.Group).Children, 1)
}

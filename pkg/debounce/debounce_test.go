package debounce_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/goliatone/go-formbind/pkg/debounce"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(v string) {
	r.mu.Lock()
	r.calls = append(r.calls, v)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newFrameSetup() (*fakeClock, *debounce.FrameScheduler, *recorder) {
	clock := newFakeClock()
	return clock, debounce.NewFrameScheduler(debounce.WithClock(clock.Now)), &recorder{}
}

func TestTrailingCollapsesBurstToLastArgument(t *testing.T) {
	clock, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, 100*time.Millisecond, debounce.WithScheduler(sched))

	for _, v := range []string{"a", "b", "c"} {
		d.Call(v)
		clock.Advance(30 * time.Millisecond)
		sched.Tick()
	}
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no invocation inside the window, got %v", got)
	}
	if !d.Pending() {
		t.Fatalf("expected pending call")
	}

	clock.Advance(100 * time.Millisecond)
	sched.Tick()
	sched.Tick()

	if diff := cmp.Diff([]string{"c"}, rec.snapshot()); diff != "" {
		t.Fatalf("invocations mismatch (-want +got):\n%s", diff)
	}
	if d.Pending() {
		t.Fatalf("expected no pending call after invocation")
	}
}

func TestLeadingInvokesImmediately(t *testing.T) {
	clock, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, 50*time.Millisecond, debounce.WithScheduler(sched), debounce.WithLeading(true))

	d.Call("first")
	if diff := cmp.Diff([]string{"first"}, rec.snapshot()); diff != "" {
		t.Fatalf("leading mismatch (-want +got):\n%s", diff)
	}

	d.Call("second")
	clock.Advance(60 * time.Millisecond)
	sched.Tick()

	if diff := cmp.Diff([]string{"first", "second"}, rec.snapshot()); diff != "" {
		t.Fatalf("trailing mismatch (-want +got):\n%s", diff)
	}
}

func TestLeadingOnlySkipsTrailing(t *testing.T) {
	clock, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, 50*time.Millisecond,
		debounce.WithScheduler(sched), debounce.WithLeading(true), debounce.WithTrailing(false))

	d.Call("a")
	d.Call("b")
	clock.Advance(60 * time.Millisecond)
	sched.Tick()

	if diff := cmp.Diff([]string{"a"}, rec.snapshot()); diff != "" {
		t.Fatalf("invocations mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxWaitForcesPeriodicFlush(t *testing.T) {
	clock, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, 100*time.Millisecond,
		debounce.WithScheduler(sched), debounce.WithMaxWait(250*time.Millisecond))

	// A call every 50ms never lets the 100ms window settle.
	for i := 0; i < 12; i++ {
		d.Call(string(rune('a' + i)))
		clock.Advance(50 * time.Millisecond)
		sched.Tick()
	}

	got := rec.snapshot()
	if len(got) < 2 {
		t.Fatalf("expected max-wait to force at least two invocations, got %v", got)
	}
	if got[0] != "e" {
		t.Fatalf("expected first forced invocation to carry the fifth value, got %q", got[0])
	}
}

func TestFlushInvokesSynchronously(t *testing.T) {
	_, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, time.Second, debounce.WithScheduler(sched))

	d.Call("x")
	d.Flush()

	if diff := cmp.Diff([]string{"x"}, rec.snapshot()); diff != "" {
		t.Fatalf("flush mismatch (-want +got):\n%s", diff)
	}
	if d.Pending() {
		t.Fatalf("expected pending to be false after flush")
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected flush to clear the scheduled timer")
	}
}

func TestCancelThenFlushIsNoop(t *testing.T) {
	clock, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, 10*time.Millisecond, debounce.WithScheduler(sched))

	d.Call("x")
	d.Cancel()
	if d.Pending() {
		t.Fatalf("expected pending to be false after cancel")
	}
	d.Flush()
	clock.Advance(time.Second)
	sched.Tick()

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected no invocation, got %v", got)
	}
}

func TestZeroWaitAlignsWithNextFrame(t *testing.T) {
	_, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, 0, debounce.WithScheduler(sched))

	d.Call("a")
	d.Call("b")
	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected invocation deferred to next frame, got %v", got)
	}

	sched.Tick()
	if diff := cmp.Diff([]string{"b"}, rec.snapshot()); diff != "" {
		t.Fatalf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestCallsAfterCloseAreDropped(t *testing.T) {
	clock, sched, rec := newFrameSetup()
	d := debounce.New(rec.record, 10*time.Millisecond, debounce.WithScheduler(sched))

	d.Call("before")
	d.Close()
	d.Call("after")
	d.Flush()
	clock.Advance(time.Second)
	sched.Tick()

	if got := rec.snapshot(); len(got) != 0 {
		t.Fatalf("expected closed debouncer to stay silent, got %v", got)
	}
}

func TestTimerSchedulerRapidCalls(t *testing.T) {
	var called int32
	var last atomic.Value
	d := debounce.New(func(v int) {
		atomic.AddInt32(&called, 1)
		last.Store(v)
	}, 40*time.Millisecond)

	for i := 1; i <= 5; i++ {
		d.Call(i)
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if got := atomic.LoadInt32(&called); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
	if got := last.Load(); got != 5 {
		t.Fatalf("expected last value 5, got %v", got)
	}
}

func TestFrameSchedulerOrdersByDeadline(t *testing.T) {
	clock := newFakeClock()
	sched := debounce.NewFrameScheduler(debounce.WithClock(clock.Now))
	var order []string

	sched.After(20*time.Millisecond, func() { order = append(order, "late") })
	sched.After(10*time.Millisecond, func() { order = append(order, "early") })
	cancel := sched.After(5*time.Millisecond, func() { order = append(order, "cancelled") })
	cancel()

	clock.Advance(15 * time.Millisecond)
	if ran := sched.Tick(); ran != 1 {
		t.Fatalf("expected 1 task, ran %d", ran)
	}
	clock.Advance(15 * time.Millisecond)
	sched.Tick()

	if diff := cmp.Diff([]string{"early", "late"}, order); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

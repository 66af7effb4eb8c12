package debounce

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a scheduled task. Calling it after the task ran is a no-op.
type Cancel func()

// Scheduler decides when deferred work runs. The engine selects one through
// configuration: TimerScheduler for wall-clock timers, FrameScheduler when a
// host redraw loop drives time forward.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, fn func()) Cancel
}

// FrameRequester is implemented by schedulers that can align work with the
// next redraw. Zero-wait debouncers prefer it over After(0).
type FrameRequester interface {
	NextFrame(fn func()) Cancel
}

// TimerScheduler runs tasks on time.AfterFunc goroutines.
type TimerScheduler struct{}

// NewTimerScheduler returns the wall-clock scheduler.
func NewTimerScheduler() TimerScheduler { return TimerScheduler{} }

// Now reports the wall clock.
func (TimerScheduler) Now() time.Time { return time.Now() }

// After schedules fn on a timer goroutine.
func (TimerScheduler) After(d time.Duration, fn func()) Cancel {
	timer := time.AfterFunc(d, fn)
	return func() { timer.Stop() }
}

// FrameScheduler queues tasks until the host calls Tick, once per redraw.
// Tasks whose deadline has passed run on that tick, ordered by deadline and
// then by scheduling order. Tasks scheduled while a tick runs wait for the
// next one.
type FrameScheduler struct {
	mu    sync.Mutex
	clock func() time.Time
	seq   uint64
	tasks map[uint64]frameTask
}

type frameTask struct {
	id   uint64
	due  time.Time
	next bool
	fn   func()
}

// FrameOption configures a FrameScheduler.
type FrameOption func(*FrameScheduler)

// WithClock overrides the time source, mostly for tests.
func WithClock(clock func() time.Time) FrameOption {
	return func(s *FrameScheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewFrameScheduler builds a redraw-aligned scheduler.
func NewFrameScheduler(options ...FrameOption) *FrameScheduler {
	s := &FrameScheduler{
		clock: time.Now,
		tasks: make(map[uint64]frameTask),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Now reports the scheduler clock.
func (s *FrameScheduler) Now() time.Time { return s.clock() }

// After queues fn to run on the first tick at or after now+d.
func (s *FrameScheduler) After(d time.Duration, fn func()) Cancel {
	return s.add(frameTask{due: s.clock().Add(d), fn: fn})
}

// NextFrame queues fn for the next tick regardless of the clock.
func (s *FrameScheduler) NextFrame(fn func()) Cancel {
	return s.add(frameTask{due: s.clock(), next: true, fn: fn})
}

func (s *FrameScheduler) add(task frameTask) Cancel {
	s.mu.Lock()
	s.seq++
	task.id = s.seq
	s.tasks[task.id] = task
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.tasks, task.id)
		s.mu.Unlock()
	}
}

// Tick runs every due task and reports how many ran.
func (s *FrameScheduler) Tick() int {
	now := s.clock()

	s.mu.Lock()
	due := make([]frameTask, 0, len(s.tasks))
	for id, task := range s.tasks {
		if task.next || !task.due.After(now) {
			due = append(due, task)
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	for _, task := range due {
		task.fn()
	}
	return len(due)
}

// Pending reports the number of queued tasks.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

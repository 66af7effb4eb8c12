package engine

import "sync"

// dispatcher serialises every mutation of an engine instance. Whoever posts
// first drains the queue; posts that arrive meanwhile, including re-entrant
// ones from inside a running task, are queued instead of blocking, so host
// callbacks can safely call back into the engine.
type dispatcher struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
	closed   bool
}

func (d *dispatcher) post(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, fn)
	if d.draining {
		d.mu.Unlock()
		return
	}

	d.draining = true
	for len(d.queue) > 0 && !d.closed {
		next := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()
		next()
		d.mu.Lock()
	}
	d.queue = nil
	d.draining = false
	d.mu.Unlock()
}

func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

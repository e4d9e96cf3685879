package search

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a typed query is issued.
const DefaultDelay = 300 * time.Millisecond

// Debouncer delays fn until Trigger has not been called for the configured
// delay. Each Trigger cancels the pending call, so only the last input runs.
type Debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	fn       func(string)
	timer    *time.Timer
	pending  string
	stopped  bool
	inflight sync.WaitGroup
}

// NewDebouncer creates a Debouncer calling fn. A non-positive delay uses DefaultDelay.
func NewDebouncer(delay time.Duration, fn func(query string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn(query), replacing any call still pending.
func (d *Debouncer) Trigger(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.cancelLocked()
	d.pending = query
	d.inflight.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.inflight.Done()
		d.fn(query)
	})
}

// Flush runs the pending call immediately, if any, and waits for calls
// already in progress. It must not race with Trigger.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	query, run := d.pending, d.timer != nil && d.timer.Stop()
	d.timer = nil
	d.mu.Unlock()

	if run {
		d.fn(query)
		d.inflight.Done()
	}
	d.inflight.Wait()
}

// Stop cancels the pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.inflight.Done()
	}
	d.timer = nil
}

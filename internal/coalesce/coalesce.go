package coalesce

import (
	"image"
	"sync"
	"time"

	"photo-browser/internal/metrics"
)

// DefaultDelay is the debounce window used when none is configured.
const DefaultDelay = 100 * time.Millisecond

// Timer is a single-shot timer armed by a Scheduler.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// callback from running.
	Stop() bool
}

// Scheduler arms single-shot timers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// TimeScheduler runs callbacks on the time package's own goroutines.
type TimeScheduler struct{}

// AfterFunc implements Scheduler.
func (TimeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Coalescer unions rectangles until its timer fires, then emits the union
// once. It is safe for concurrent use; emit runs on the scheduler's
// goroutine with no lock held.
type Coalescer struct {
	sched Scheduler
	delay time.Duration
	emit  func(image.Rectangle)

	mu      sync.Mutex
	pending image.Rectangle
	timer   Timer
	// gen identifies the armed timer so a callback that lost a race with
	// Reset cannot take rectangles added after it.
	gen uint64
}

// New returns a Coalescer delivering unions to emit after delay.
func New(sched Scheduler, delay time.Duration, emit func(image.Rectangle)) *Coalescer {
	if sched == nil {
		sched = TimeScheduler{}
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coalescer{sched: sched, delay: delay, emit: emit}
}

// Add merges r into the pending rectangle and arms the timer if it is not
// already armed. Empty rectangles are ignored.
func (c *Coalescer) Add(r image.Rectangle) {
	if r.Empty() {
		return
	}
	metrics.CoalescerRectsAdded.Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = c.pending.Union(r)
	if c.timer == nil {
		c.gen++
		gen := c.gen
		c.timer = c.sched.AfterFunc(c.delay, func() { c.fire(gen) })
	}
}

func (c *Coalescer) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.timer == nil {
		c.mu.Unlock()
		return
	}
	r := c.pending
	c.pending = image.Rectangle{}
	c.timer = nil
	c.mu.Unlock()

	if r.Empty() || c.emit == nil {
		return
	}
	metrics.CoalescerEventsEmitted.Inc()
	c.emit(r)
}

// Reset drops the pending rectangle and cancels the armed timer. Calling it
// with nothing pending is a no-op.
func (c *Coalescer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = image.Rectangle{}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
		metrics.CoalescerResets.Inc()
	}
}

// Pending returns the union not yet delivered.
func (c *Coalescer) Pending() image.Rectangle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

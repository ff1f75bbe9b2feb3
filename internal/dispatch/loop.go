package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"photo-browser/internal/coalesce"
	"photo-browser/internal/logging"
)

// ErrStopped is returned by Do once the loop has stopped.
var ErrStopped = errors.New("dispatch loop stopped")

const defaultQueueSize = 256

// Loop runs functions serially on one goroutine.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	running atomic.Bool
	log     logging.Logger
}

// New creates a loop with the given queue size. Start it with Run.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Loop{
		tasks:   make(chan func(), queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		log:     logging.For("dispatch"),
	}
}

// Run executes posted functions until ctx is cancelled or Stop is called.
// Functions still queued at that point are run before Run returns.
func (l *Loop) Run(ctx context.Context) {
	l.running.Store(true)
	defer close(l.stopped)

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			l.drain()
			return
		case <-l.done:
			l.drain()
			return
		case f := <-l.tasks:
			l.run(f)
		}
	}
}

func (l *Loop) drain() {
	for {
		select {
		case f := <-l.tasks:
			l.run(f)
		default:
			return
		}
	}
}

func (l *Loop) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("posted function panicked: %v", r)
		}
	}()
	f()
}

// Post queues f. It blocks while the queue is full and reports false if the
// loop has stopped. Posting from the loop goroutine itself with a full
// queue deadlocks.
func (l *Loop) Post(f func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- f:
		return true
	case <-l.done:
		return false
	}
}

// Do runs f on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		f()
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stop asks Run to return. It is safe to call more than once.
func (l *Loop) Stop() {
	l.once.Do(func() { close(l.done) })
}

// Wait blocks until Run has returned. It returns immediately if Run was
// never started.
func (l *Loop) Wait() {
	if l.running.Load() {
		<-l.stopped
	}
}

// timer states
const (
	timerPending int32 = iota
	timerStopped
	timerFired
)

type loopTimer struct {
	state atomic.Int32
	t     *time.Timer
}

// Stop implements coalesce.Timer.
func (t *loopTimer) Stop() bool {
	if !t.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	t.t.Stop()
	return true
}

// AfterFunc implements coalesce.Scheduler. f runs on the loop after d
// unless the timer is stopped first, including while the callback is
// already queued.
func (l *Loop) AfterFunc(d time.Duration, f func()) coalesce.Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if lt.state.CompareAndSwap(timerPending, timerFired) {
				f()
			}
		})
	})
	return lt
}

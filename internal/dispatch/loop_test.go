package dispatch

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"photo-browser/internal/coalesce"
)

func startLoop(t *testing.T) (*Loop, context.CancelFunc) {
	t.Helper()
	l := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		l.Wait()
	})
	return l, cancel
}

func TestPostRunsInOrder(t *testing.T) {
	l, _ := startLoop(t)

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 50; i++ {
		i := i
		if !l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}) {
			t.Fatal("Post returned false on a running loop")
		}
	}

	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 50 {
		t.Fatalf("ran %d functions, want 50", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("position %d ran %d", i, v)
		}
	}
}

func TestDoRecoversPanics(t *testing.T) {
	l, _ := startLoop(t)

	_ = l.Do(context.Background(), func() { panic("boom") })

	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil {
		t.Fatalf("Do() after panic error: %v", err)
	}
	if !ran {
		t.Error("loop should keep running after a panic")
	}
}

func TestPostAfterStop(t *testing.T) {
	l := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	l.Stop()
	l.Stop()
	l.Wait()

	if l.Post(func() {}) {
		t.Error("Post should fail after Stop")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Do() after Stop = %v, want ErrStopped", err)
	}
}

func TestAfterFuncRunsOnLoop(t *testing.T) {
	l, _ := startLoop(t)

	// record the goroutine identity through a value only the loop touches
	var onLoop bool
	marker := make(chan struct{})
	_ = l.Do(context.Background(), func() { onLoop = true })

	fired := make(chan bool, 1)
	l.AfterFunc(5*time.Millisecond, func() {
		fired <- onLoop
		close(marker)
	})

	select {
	case v := <-fired:
		if !v {
			t.Error("callback did not observe loop state")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	<-marker
}

func TestAfterFuncStop(t *testing.T) {
	l, _ := startLoop(t)

	fired := make(chan struct{}, 1)
	timer := l.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} })
	if !timer.Stop() {
		t.Fatal("Stop on a pending timer should return true")
	}
	if timer.Stop() {
		t.Error("second Stop should return false")
	}

	select {
	case <-fired:
		t.Error("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestAfterFuncStopWhileQueued(t *testing.T) {
	l, _ := startLoop(t)

	// block the loop so the timer callback queues behind it
	release := make(chan struct{})
	l.Post(func() { <-release })

	fired := make(chan struct{}, 1)
	timer := l.AfterFunc(time.Millisecond, func() { fired <- struct{}{} })
	time.Sleep(20 * time.Millisecond)

	if !timer.Stop() {
		t.Error("Stop before the queued callback ran should return true")
	}
	close(release)
	_ = l.Do(context.Background(), func() {})

	select {
	case <-fired:
		t.Error("callback ran after Stop")
	default:
	}
}

func TestLoopAsCoalescerScheduler(t *testing.T) {
	l, _ := startLoop(t)

	got := make(chan image.Rectangle, 2)
	c := coalesce.New(l, 10*time.Millisecond, func(r image.Rectangle) { got <- r })
	c.Add(image.Rect(0, 0, 10, 5))
	c.Add(image.Rect(0, 5, 10, 10))

	select {
	case r := <-got:
		if r != image.Rect(0, 0, 10, 10) {
			t.Errorf("event = %v, want (0,0)-(10,10)", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for coalesced event")
	}
}

package record

import (
	"image"
	"sync"
	"testing"
	"time"

	"photo-browser/internal/coalesce"
	"photo-browser/internal/media"

	"golang.org/x/image/math/f64"
)

// event is one recorded listener callback.
type event struct {
	kind     string
	state    State
	oldState State
	checked  CheckState
	oldCheck CheckState
	img      image.Image
	region   image.Rectangle
}

// recorder is a Listener that stores every callback.
type recorder struct {
	mu     sync.Mutex
	events []event
}

func (rec *recorder) add(e event) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.events = append(rec.events, e)
}

func (rec *recorder) StateChanged(_ *Record, n, o State) {
	rec.add(event{kind: "state", state: n, oldState: o})
}

func (rec *recorder) ThumbnailChanged(_ *Record, img image.Image) {
	rec.add(event{kind: "thumbnail", img: img})
}

func (rec *recorder) DecodedImageChanged(_ *Record, img image.Image, _ f64.Aff3) {
	rec.add(event{kind: "decoded", img: img})
}

func (rec *recorder) CheckStateChanged(_ *Record, n, o CheckState) {
	rec.add(event{kind: "checked", checked: n, oldCheck: o})
}

func (rec *recorder) PreviewRegionUpdated(_ *Record, region image.Rectangle) {
	rec.add(event{kind: "region", region: region})
}

// of returns the recorded events of one kind.
func (rec *recorder) of(kind string) []event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []event
	for _, e := range rec.events {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (rec *recorder) reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.events = nil
}

// subscribed creates a record with a recorder attached and the replayed
// events cleared.
func subscribed(t *testing.T, path string, opts Options) (*Record, *recorder) {
	t.Helper()
	r := New(path, opts)
	t.Cleanup(r.Destroy)
	rec := &recorder{}
	r.Subscribe(rec)
	rec.reset()
	return r, rec
}

// manualScheduler holds armed timers until the test fires them.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	f    func()
	done bool
}

func (t *manualTimer) Stop() bool {
	was := !t.done
	t.done = true
	return was
}

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) coalesce.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *manualScheduler) fire() {
	s.mu.Lock()
	timers := s.timers
	s.timers = nil
	s.mu.Unlock()
	for _, t := range timers {
		if !t.done {
			t.done = true
			t.f()
		}
	}
}

func TestSetStateIdempotent(t *testing.T) {
	r, rec := subscribed(t, "/p/a.jpg", Options{})

	if !r.SetState(Metadata) {
		t.Error("first SetState should report a change")
	}
	if r.SetState(Metadata) {
		t.Error("second SetState should be a no-op")
	}

	events := rec.of("state")
	if len(events) != 1 {
		t.Fatalf("got %d state events, want 1", len(events))
	}
	if events[0].state != Metadata || events[0].oldState != Unknown {
		t.Errorf("event = (%s, %s), want (metadata, unknown)", events[0].state, events[0].oldState)
	}
}

func TestFatalAbsorbsErrorAndCancelled(t *testing.T) {
	r, rec := subscribed(t, "/p/a.cr2", Options{})

	r.SetFatal("unsupported format")
	r.SetError("read failed")
	r.SetState(Cancelled)

	if r.State() != Fatal {
		t.Errorf("State = %s, want fatal", r.State())
	}
	if r.ErrorMessage() != "unsupported format" {
		t.Errorf("ErrorMessage = %q, want the fatal message", r.ErrorMessage())
	}
	if n := len(rec.of("state")); n != 1 {
		t.Errorf("got %d state events, want 1", n)
	}

	// other transitions out of Fatal are allowed
	if !r.SetState(Unknown) {
		t.Error("Fatal -> Unknown should be allowed")
	}
	if r.ErrorMessage() != "" {
		t.Error("leaving an error state should clear the message")
	}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		name   string
		from   State
		to     State
		change bool
	}{
		{"Unknown to Metadata", Unknown, Metadata, true},
		{"Preview to Full", PreviewImage, FullImage, true},
		{"Error to Cancelled", Error, Cancelled, true},
		{"Cancelled to Fatal", Cancelled, Fatal, true},
		{"Fatal to Error", Fatal, Error, false},
		{"Fatal to Cancelled", Fatal, Cancelled, false},
		{"Fatal to Fatal", Fatal, Fatal, false},
		{"Fatal to FullImage", Fatal, FullImage, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("/p/a.jpg", Options{})
			defer r.Destroy()
			r.SetState(tt.from)
			if got := r.SetState(tt.to); got != tt.change {
				t.Errorf("SetState(%s) from %s = %v, want %v", tt.to, tt.from, got, tt.change)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	want := []string{"unknown", "metadata", "preview", "full", "error", "cancelled", "fatal"}
	for i, s := range want {
		if got := State(i).String(); got != s {
			t.Errorf("State(%d).String() = %q, want %q", i, got, s)
		}
	}
}

func TestReplayOnSubscribe(t *testing.T) {
	sched := &manualScheduler{}
	r := New("/p/a.jpg", Options{Scheduler: sched, ReferenceHeight: 10})
	defer r.Destroy()

	thumb := image.NewRGBA(image.Rect(0, 0, 40, 20))
	full := image.NewRGBA(image.Rect(0, 0, 400, 200))
	r.SetState(PreviewImage)
	r.SetThumbnail(thumb)
	r.SetDecodedImage(full)
	r.SetChecked(Checked, ViewMode{})
	r.UpdatePreviewRegion(image.Rect(0, 0, 400, 50))
	sched.fire()

	rec := &recorder{}
	r.Subscribe(rec)

	if s := rec.of("state"); len(s) != 1 || s[0].state != PreviewImage || s[0].oldState != PreviewImage {
		t.Errorf("state replay = %+v", s)
	}
	if th := rec.of("thumbnail"); len(th) != 1 || th[0].img != image.Image(thumb) {
		t.Errorf("thumbnail replay = %+v", th)
	}
	if d := rec.of("decoded"); len(d) != 1 || d[0].img != image.Image(full) {
		t.Errorf("decoded replay = %+v", d)
	}
	if c := rec.of("checked"); len(c) != 1 || c[0].checked != Checked {
		t.Errorf("checked replay = %+v", c)
	}
	if reg := rec.of("region"); len(reg) != 1 || reg[0].region != image.Rect(0, 0, 400, 50) {
		t.Errorf("region replay = %+v", reg)
	}
}

func TestReplaySkipsUnsetValues(t *testing.T) {
	r := New("/p/a.jpg", Options{})
	defer r.Destroy()

	rec := &recorder{}
	r.Subscribe(rec)

	if len(rec.of("state")) != 1 || len(rec.of("checked")) != 1 {
		t.Error("state and check state are always replayed")
	}
	for _, kind := range []string{"thumbnail", "decoded", "region"} {
		if n := len(rec.of(kind)); n != 0 {
			t.Errorf("got %d %s replays for an unset value", n, kind)
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	r := New("/p/a.jpg", Options{})
	defer r.Destroy()

	first, second := &recorder{}, &recorder{}
	unsubscribe := r.Subscribe(first)
	r.Subscribe(second)
	unsubscribe()
	unsubscribe()

	r.SetState(Metadata)

	if n := len(first.of("state")); n != 1 {
		t.Errorf("unsubscribed listener got %d state events, want only the replay", n)
	}
	if n := len(second.of("state")); n != 2 {
		t.Errorf("subscribed listener got %d state events, want 2", n)
	}
}

// TestListenerReentry calls back into the record from every callback. A
// lock held during delivery would deadlock here.
func TestListenerReentry(t *testing.T) {
	r := New("/p/a.jpg", Options{ReferenceHeight: 8})
	defer r.Destroy()

	var calls int
	r.Subscribe(ListenerFuncs{
		OnStateChanged: func(rr *Record, n, _ State) {
			calls++
			_ = rr.State()
			_ = rr.ThumbnailTransformed(4)
			if n == Metadata {
				rr.SetState(PreviewImage)
			}
		},
		OnThumbnailChanged: func(rr *Record, _ image.Image) {
			calls++
			_ = rr.Thumbnail()
			_, _ = rr.AFPoints()
		},
		OnCheckStateChanged: func(rr *Record, _, _ CheckState) {
			calls++
			_ = rr.Checked(ViewMode{CombineRawJPEG: true})
		},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.SetState(Metadata)
		r.SetThumbnail(image.NewRGBA(image.Rect(0, 0, 16, 16)))
		r.SetChecked(Checked, ViewMode{})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener re-entry deadlocked")
	}

	if r.State() != PreviewImage {
		t.Errorf("State = %s, want preview (set from inside a listener)", r.State())
	}
	if calls == 0 {
		t.Error("listeners were not called")
	}
}

func TestPreviewRegionCoalescing(t *testing.T) {
	sched := &manualScheduler{}
	r, rec := subscribed(t, "/p/a.cr2", Options{Scheduler: sched})

	r1 := image.Rect(0, 0, 100, 10)
	r2 := image.Rect(0, 10, 100, 20)
	r.UpdatePreviewRegion(r1)
	r.UpdatePreviewRegion(r2)
	if r.PendingPreviewRegion() != r1.Union(r2) {
		t.Errorf("pending = %v", r.PendingPreviewRegion())
	}
	sched.fire()

	events := rec.of("region")
	if len(events) != 1 || events[0].region != r1.Union(r2) {
		t.Fatalf("region events = %+v, want one union", events)
	}
	if r.PreviewRegion() != r1.Union(r2) {
		t.Errorf("PreviewRegion = %v", r.PreviewRegion())
	}

	rec.reset()
	r.UpdatePreviewRegion(image.Rect(0, 20, 100, 30))
	r.ResetPreviewRegion()
	sched.fire()

	if n := len(rec.of("region")); n != 0 {
		t.Errorf("got %d region events after reset, want 0", n)
	}
	if !r.PreviewRegion().Empty() {
		t.Error("reset should forget delivered regions")
	}
}

func TestSetDecodedImageAndTransform(t *testing.T) {
	r, rec := subscribed(t, "/p/a.jpg", Options{})

	r.SetUserTransform(f64.Aff3{2, 0, 0, 0, 2, 0})
	if n := len(rec.of("decoded")); n != 0 {
		t.Errorf("user transform without an image emitted %d events", n)
	}

	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	r.SetDecodedImage(img)
	r.SetUserTransform(media.Identity)

	if n := len(rec.of("decoded")); n != 2 {
		t.Errorf("got %d decoded events, want 2", n)
	}
	if r.DecodedImage() != image.Image(img) {
		t.Error("DecodedImage did not return the stored image")
	}
	if r.DisplayTransform() != media.Identity {
		t.Errorf("DisplayTransform = %v, want identity", r.DisplayTransform())
	}
}

func TestDestroy(t *testing.T) {
	sched := &manualScheduler{}
	r := New("/p/a.jpg", Options{Scheduler: sched})
	rec := &recorder{}
	r.Subscribe(rec)
	rec.reset()

	r.UpdatePreviewRegion(image.Rect(0, 0, 5, 5))
	r.Destroy()
	r.Destroy()
	sched.fire()

	r.SetState(FullImage)
	if len(rec.events) != 0 {
		t.Errorf("destroyed record emitted %d events", len(rec.events))
	}
	if !r.Destroyed() {
		t.Error("Destroyed should report true")
	}
	if r.Decoder() != nil || r.Exif() != nil {
		t.Error("Destroy should release the decoder and metadata handles")
	}
}

func TestIDStable(t *testing.T) {
	a := ID("/photos/IMG_0001.CR2")
	b := ID("/photos/IMG_0001.CR2")
	c := ID("/photos/IMG_0001.JPG")
	if a != b {
		t.Error("ID should be stable for a path")
	}
	if a == c {
		t.Error("different paths should have different IDs")
	}

	r := New("/photos/IMG_0001.CR2", Options{})
	defer r.Destroy()
	if r.ID() != a || r.Kind() != media.KindRaw || r.Path() != "/photos/IMG_0001.CR2" {
		t.Errorf("record identity = (%s, %s, %s)", r.ID(), r.Kind(), r.Path())
	}
}

func TestConcurrentMutators(t *testing.T) {
	r := New("/p/a.jpg", Options{ReferenceHeight: 4})
	defer r.Destroy()
	r.Subscribe(ListenerFuncs{})

	var wg sync.WaitGroup
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r.SetThumbnail(image.NewRGBA(image.Rect(0, 0, w*4, 8)))
			r.SetState(State(w % 4))
			r.UpdatePreviewRegion(image.Rect(0, w, 10, w+1))
			_ = r.ThumbnailTransformed(2)
			_, _ = r.AFPoints()
		}(i)
	}
	wg.Wait()

	if got := media.Width(r.Thumbnail()); got != 64 {
		t.Errorf("thumbnail width = %d, want the largest (64)", got)
	}
}

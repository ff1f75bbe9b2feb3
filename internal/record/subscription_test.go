package record

import (
	"image"
	"sync"
	"testing"

	"photo-browser/internal/media"
	"photo-browser/internal/metadata"

	"golang.org/x/image/math/f64"
)

// TestReplayThenLiveChangeFromCallback changes the thumbnail from inside
// the replayed StateChanged. The replayed thumbnail must not be the last
// one the listener sees.
func TestReplayThenLiveChangeFromCallback(t *testing.T) {
	r := New("/p/a.jpg", Options{ReferenceHeight: 4})
	defer r.Destroy()
	r.SetThumbnail(image.NewRGBA(image.Rect(0, 0, 50, 10)))

	var mu sync.Mutex
	var widths []int
	changed := false
	r.Subscribe(ListenerFuncs{
		OnStateChanged: func(rr *Record, _, _ State) {
			if !changed {
				changed = true
				rr.SetThumbnail(image.NewRGBA(image.Rect(0, 0, 100, 10)))
			}
		},
		OnThumbnailChanged: func(_ *Record, img image.Image) {
			mu.Lock()
			defer mu.Unlock()
			widths = append(widths, media.Width(img))
		},
	})

	mu.Lock()
	defer mu.Unlock()
	if len(widths) == 0 {
		t.Fatal("Expected thumbnail events, got none")
	}
	if last := widths[len(widths)-1]; last != 100 {
		t.Errorf("Expected last seen width 100, got %d (events %v)", last, widths)
	}
	if got := media.Width(r.Thumbnail()); got != 100 {
		t.Errorf("Expected record thumbnail width 100, got %d", got)
	}
}

func TestSubscriptionDropsOlderValues(t *testing.T) {
	rec := &recorder{}
	sub := &subscription{listener: rec}
	newer := image.NewRGBA(image.Rect(0, 0, 100, 10))
	older := image.NewRGBA(image.Rect(0, 0, 50, 10))

	sub.post(fieldThumbnail, 5, func(l Listener) { l.ThumbnailChanged(nil, newer) })
	sub.post(fieldThumbnail, 3, func(l Listener) { l.ThumbnailChanged(nil, older) })
	sub.post(fieldThumbnail, 5, func(l Listener) { l.ThumbnailChanged(nil, newer) })
	sub.post(fieldState, 2, func(l Listener) { l.StateChanged(nil, Metadata, Unknown) })

	if th := rec.of("thumbnail"); len(th) != 1 || th[0].img != image.Image(newer) {
		t.Errorf("Expected only the newer thumbnail, got %+v", th)
	}
	if n := len(rec.of("state")); n != 1 {
		t.Errorf("Expected 1 state event, got %d", n)
	}

	// regions are increments and always delivered
	sub.post(fieldRegion, 0, func(l Listener) { l.PreviewRegionUpdated(nil, image.Rect(0, 0, 1, 1)) })
	sub.post(fieldRegion, 0, func(l Listener) { l.PreviewRegionUpdated(nil, image.Rect(0, 1, 1, 2)) })
	if n := len(rec.of("region")); n != 2 {
		t.Errorf("Expected 2 region events, got %d", n)
	}

	sub.close()
	sub.post(fieldState, 9, func(l Listener) { l.StateChanged(nil, FullImage, Metadata) })
	if n := len(rec.of("state")); n != 1 {
		t.Errorf("closed subscription delivered, got %d state events", n)
	}
}

// TestSubscribeDuringConcurrentChanges subscribes while other goroutines
// replace the thumbnail and check mark. Every subscriber must end on the
// record's final values.
func TestSubscribeDuringConcurrentChanges(t *testing.T) {
	r := New("/p/a.jpg", Options{ReferenceHeight: 2})
	defer r.Destroy()

	var wg sync.WaitGroup
	recs := make([]*recorder, 8)
	for i := range recs {
		recs[i] = &recorder{}
		wg.Add(1)
		go func(rec *recorder) {
			defer wg.Done()
			r.Subscribe(rec)
		}(recs[i])
	}
	for w := 1; w <= 16; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			r.SetThumbnail(image.NewRGBA(image.Rect(0, 0, w*2, 4)))
			r.SetChecked(CheckState(w%3), ViewMode{})
		}(w)
	}
	wg.Wait()

	final := r.Thumbnail()
	finalCheck := r.Checked(ViewMode{})
	for i, rec := range recs {
		th := rec.of("thumbnail")
		if len(th) == 0 || th[len(th)-1].img != final {
			t.Errorf("subscriber %d: last thumbnail is not the current one", i)
		}
		c := rec.of("checked")
		if len(c) == 0 || c[len(c)-1].checked != finalCheck {
			t.Errorf("subscriber %d: last check state is not %s", i, finalCheck)
		}
	}
}

func TestDecodedImageTransformMatchesImage(t *testing.T) {
	r := New("/p/a.jpg", Options{})
	defer r.Destroy()
	r.SetExif(metadata.NewTags().SetOrientation(media.Rot90))

	var got f64.Aff3
	r.Subscribe(ListenerFuncs{
		OnDecodedImageChanged: func(_ *Record, _ image.Image, transform f64.Aff3) {
			got = transform
		},
	})

	img := image.NewRGBA(image.Rect(0, 0, 10, 20))
	r.SetDecodedImage(img)

	want := media.Mul(media.Identity, media.Derive(media.Rot90).Matrix(10, 20))
	if got != want {
		t.Errorf("Expected transform %v, got %v", want, got)
	}
}

func TestConcurrentTransitionsEndOnCurrentState(t *testing.T) {
	r, rec := subscribed(t, "/p/a.jpg", Options{})

	states := []State{Metadata, PreviewImage, FullImage, Error, Cancelled}
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.SetState(states[i%len(states)])
		}(i)
	}
	wg.Wait()

	events := rec.of("state")
	if len(events) == 0 {
		t.Fatal("Expected state events, got none")
	}
	if last := events[len(events)-1].state; last != r.State() {
		t.Errorf("Expected last event %s, got %s", r.State(), last)
	}
}

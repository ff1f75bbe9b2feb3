package record

import (
	"image"
	"sync"

	"golang.org/x/image/math/f64"
)

// Listener receives Record change notifications. Every callback runs after
// the change is committed and with no Record lock held. Calls to one
// listener never overlap; they usually run on the goroutine that made the
// change, but a change made while the listener is busy is delivered by the
// goroutine already delivering to it. PreviewRegionUpdated originates on
// the coalescer's scheduler.
//
// On Subscribe, the listener first receives the current values: a
// StateChanged and a CheckStateChanged whose new and old values are equal,
// plus ThumbnailChanged, DecodedImageChanged and PreviewRegionUpdated when
// those values are set. A value is skipped if a newer one of the same kind
// has already reached the listener, so concurrent changes may be collapsed
// but the last event of each kind always carries the current value.
type Listener interface {
	StateChanged(r *Record, newState, oldState State)
	ThumbnailChanged(r *Record, thumbnail image.Image)
	DecodedImageChanged(r *Record, img image.Image, transform f64.Aff3)
	CheckStateChanged(r *Record, newState, oldState CheckState)
	PreviewRegionUpdated(r *Record, region image.Rectangle)
}

// ListenerFuncs adapts optional functions to a Listener. Nil fields ignore
// the event.
type ListenerFuncs struct {
	OnStateChanged        func(r *Record, newState, oldState State)
	OnThumbnailChanged    func(r *Record, thumbnail image.Image)
	OnDecodedImageChanged func(r *Record, img image.Image, transform f64.Aff3)
	OnCheckStateChanged   func(r *Record, newState, oldState CheckState)
	OnPreviewRegion       func(r *Record, region image.Rectangle)
}

func (l ListenerFuncs) StateChanged(r *Record, newState, oldState State) {
	if l.OnStateChanged != nil {
		l.OnStateChanged(r, newState, oldState)
	}
}

func (l ListenerFuncs) ThumbnailChanged(r *Record, thumbnail image.Image) {
	if l.OnThumbnailChanged != nil {
		l.OnThumbnailChanged(r, thumbnail)
	}
}

func (l ListenerFuncs) DecodedImageChanged(r *Record, img image.Image, transform f64.Aff3) {
	if l.OnDecodedImageChanged != nil {
		l.OnDecodedImageChanged(r, img, transform)
	}
}

func (l ListenerFuncs) CheckStateChanged(r *Record, newState, oldState CheckState) {
	if l.OnCheckStateChanged != nil {
		l.OnCheckStateChanged(r, newState, oldState)
	}
}

func (l ListenerFuncs) PreviewRegionUpdated(r *Record, region image.Rectangle) {
	if l.OnPreviewRegion != nil {
		l.OnPreviewRegion(r, region)
	}
}

// field identifies the value an event reports. Events for the same field
// carry the record's commit sequence, so a subscriber never sees an older
// value after a newer one.
type field int

const (
	fieldState field = iota
	fieldThumbnail
	fieldImage
	fieldChecked
	numFields

	// regions are increments rather than values and are never dropped
	fieldRegion field = -1
)

type delivery struct {
	field   field
	version uint64
	call    func(Listener)
}

// subscription is one Subscribe call. Replayed and live events share its
// queue; whichever goroutine finds the queue idle delivers everything
// queued, including events posted from inside a callback.
type subscription struct {
	listener Listener

	mu       sync.Mutex
	queue    []delivery
	draining bool
	closed   bool
	seen     [numFields]uint64
}

func (s *subscription) post(f field, version uint64, call func(Listener)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, delivery{field: f, version: version, call: call})
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 && !s.closed {
		d := s.queue[0]
		s.queue[0] = delivery{}
		s.queue = s.queue[1:]
		if d.field != fieldRegion {
			if d.version <= s.seen[d.field] {
				continue
			}
			s.seen[d.field] = d.version
		}
		s.mu.Unlock()
		d.call(s.listener)
		s.mu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

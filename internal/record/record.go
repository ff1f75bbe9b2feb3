package record

import (
	"image"
	"path/filepath"
	"slices"
	"sync"
	"time"
	"weak"

	"photo-browser/internal/afpoints"
	"photo-browser/internal/coalesce"
	"photo-browser/internal/logging"
	"photo-browser/internal/media"
	"photo-browser/internal/metadata"
	"photo-browser/internal/metrics"

	"github.com/google/uuid"
	"golang.org/x/image/math/f64"
)

// DefaultReferenceHeight is the display height a new thumbnail is
// prepared for when none is configured.
const DefaultReferenceHeight = 500

// Decoder is the handle of a running decode job. The pipeline owns it; a
// Record only keeps a reference, which may outlive the Record.
type Decoder interface {
	// Cancel asks the job to stop. The job reports Cancelled through
	// SetState once it has.
	Cancel()
}

// Options configures a Record.
type Options struct {
	// Scheduler runs coalesced preview-region deliveries. Nil uses timers
	// from the time package.
	Scheduler coalesce.Scheduler
	// CoalesceDelay is the preview-region debounce window.
	CoalesceDelay time.Duration
	// ReferenceHeight is the height prepared eagerly when a thumbnail
	// arrives.
	ReferenceHeight int
	// Icons supplies file-type icons when no thumbnail exists. It is only
	// consulted from ThumbnailTransformed, so callers of that method must
	// respect the icon source's goroutine requirements.
	Icons media.IconSource
}

type thumbCache struct {
	height int
	img    image.Image
}

type afMemo struct {
	set     bool
	overlay afpoints.Overlay
	ok      bool
}

// Record is one photo in the browsing collection.
type Record struct {
	path string
	id   uuid.UUID
	kind media.Kind
	opts Options
	log  logging.Logger

	coalescer *coalesce.Coalescer

	mu         sync.Mutex
	state      State
	errMsg     string
	decoder    Decoder
	neighbor   weak.Pointer[Record]
	thumbnail  image.Image
	thumbGen   uint64
	cache      thumbCache
	fullImage  image.Image
	userMatrix f64.Aff3
	exif       metadata.Facade
	exifGen    uint64
	orientSet  bool
	orientMemo media.Orientation
	af         afMemo
	checked    CheckState
	region     image.Rectangle
	listeners  []*subscription
	destroyed  bool

	// seq counts commits; versions holds the commit of each field's
	// current value.
	seq      uint64
	versions [numFields]uint64
}

// ID returns the stable identifier for path: a name-based UUID of its
// absolute form.
func ID(path string) uuid.UUID {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(path)))
}

// New creates a Record for the file at path.
func New(path string, opts Options) *Record {
	if opts.ReferenceHeight <= 0 {
		opts.ReferenceHeight = DefaultReferenceHeight
	}
	r := &Record{
		path:       path,
		id:         ID(path),
		kind:       media.KindOf(path),
		opts:       opts,
		log:        logging.For("record"),
		userMatrix: media.Identity,
		seq:        1,
	}
	for f := range r.versions {
		r.versions[f] = 1
	}
	r.coalescer = coalesce.New(opts.Scheduler, opts.CoalesceDelay, r.deliverRegion)
	metrics.RecordsLive.Inc()
	return r
}

// Path returns the file path.
func (r *Record) Path() string { return r.path }

// ID returns the stable identifier of the record.
func (r *Record) ID() uuid.UUID { return r.id }

// Kind returns whether the file is RAW or processed.
func (r *Record) Kind() media.Kind { return r.kind }

// State returns the current decoding state.
func (r *Record) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// ErrorMessage returns the message stored with the last Error or Fatal
// transition.
func (r *Record) ErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// SetState moves the record to next and notifies listeners. Setting the
// current state again does nothing, and a Fatal record ignores Error and
// Cancelled. It reports whether the state changed.
func (r *Record) SetState(next State) bool {
	return r.transition(next, "")
}

// SetError moves the record to Error with a human-readable message.
func (r *Record) SetError(msg string) bool {
	return r.transition(Error, msg)
}

// SetFatal moves the record to Fatal with a human-readable message.
func (r *Record) SetFatal(msg string) bool {
	return r.transition(Fatal, msg)
}

func (r *Record) transition(next State, msg string) bool {
	r.mu.Lock()
	prev := r.state
	if next == prev {
		r.mu.Unlock()
		return false
	}
	if prev.absorbs(next) {
		r.mu.Unlock()
		metrics.RecordFatalAbsorbed.Inc()
		r.log.Debug("%s: %s ignored while fatal", filepath.Base(r.path), next)
		return false
	}
	r.state = next
	switch next {
	case Error, Fatal:
		r.errMsg = msg
	default:
		r.errMsg = ""
	}
	version := r.bump(fieldState)
	listeners := r.listeners
	r.mu.Unlock()

	metrics.RecordStateTransitions.WithLabelValues(prev.String(), next.String()).Inc()
	for _, sub := range listeners {
		sub.post(fieldState, version, func(l Listener) { l.StateChanged(r, next, prev) })
	}
	return true
}

// bump records a commit to f and returns its sequence. r.mu must be held.
func (r *Record) bump(f field) uint64 {
	r.seq++
	r.versions[f] = r.seq
	return r.seq
}

// SetDecoder attaches the handle of the job decoding this record. Nil
// detaches it.
func (r *Record) SetDecoder(d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoder = d
}

// Decoder returns the attached decode job, or nil.
func (r *Record) Decoder() Decoder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoder
}

// SetDecodedImage replaces the decoded image and notifies listeners with
// the transform to display it with.
func (r *Record) SetDecodedImage(img image.Image) {
	r.mu.Lock()
	r.fullImage = img
	user := r.userMatrix
	version := r.bump(fieldImage)
	listeners := r.listeners
	r.mu.Unlock()

	transform := r.transformFor(user, img)
	for _, sub := range listeners {
		sub.post(fieldImage, version, func(l Listener) { l.DecodedImageChanged(r, img, transform) })
	}
}

// DecodedImage returns the (possibly partial) decoded image, or nil.
func (r *Record) DecodedImage() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fullImage
}

// SetUserTransform sets the transform the user applied on top of the
// orientation (zoom, pan, manual rotation).
func (r *Record) SetUserTransform(m f64.Aff3) {
	r.mu.Lock()
	r.userMatrix = m
	img := r.fullImage
	if img == nil {
		r.mu.Unlock()
		return
	}
	version := r.bump(fieldImage)
	listeners := r.listeners
	r.mu.Unlock()

	transform := r.transformFor(m, img)
	for _, sub := range listeners {
		sub.post(fieldImage, version, func(l Listener) { l.DecodedImageChanged(r, img, transform) })
	}
}

// UserTransform returns the user transform, identity by default.
func (r *Record) UserTransform() f64.Aff3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userMatrix
}

// DisplayTransform maps decoded image pixels to display coordinates: the
// orientation first, then the user transform.
func (r *Record) DisplayTransform() f64.Aff3 {
	r.mu.Lock()
	user, img := r.userMatrix, r.fullImage
	r.mu.Unlock()
	return r.transformFor(user, img)
}

// transformFor composes user with the orientation matrix for img's size.
func (r *Record) transformFor(user f64.Aff3, img image.Image) f64.Aff3 {
	var w, h int
	if img != nil {
		w, h = img.Bounds().Dx(), img.Bounds().Dy()
	}
	return media.Mul(user, r.OrientationTransform().Matrix(w, h))
}

// UpdatePreviewRegion reports freshly decoded pixels. Regions are merged and
// delivered to listeners once per debounce window.
func (r *Record) UpdatePreviewRegion(rect image.Rectangle) {
	if r.Destroyed() {
		return
	}
	r.coalescer.Add(rect)
}

// ResetPreviewRegion drops undelivered regions and forgets delivered ones,
// as when decoding restarts.
func (r *Record) ResetPreviewRegion() {
	r.coalescer.Reset()
	r.mu.Lock()
	r.region = image.Rectangle{}
	r.mu.Unlock()
}

// PreviewRegion returns the union of regions delivered since the last reset.
func (r *Record) PreviewRegion() image.Rectangle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.region
}

// PendingPreviewRegion returns the union not yet delivered.
func (r *Record) PendingPreviewRegion() image.Rectangle {
	return r.coalescer.Pending()
}

func (r *Record) deliverRegion(rect image.Rectangle) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.region = r.region.Union(rect)
	listeners := r.listeners
	r.mu.Unlock()

	for _, sub := range listeners {
		sub.post(fieldRegion, 0, func(l Listener) { l.PreviewRegionUpdated(r, rect) })
	}
}

// Subscribe registers l and immediately replays the current values to it.
// The returned function removes the subscription.
func (r *Record) Subscribe(l Listener) (unsubscribe func()) {
	sub := &subscription{listener: l}

	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return func() {}
	}
	// copy on write: emitters iterate the old slice without the lock
	r.listeners = append(slices.Clip(r.listeners), sub)
	state, checked := r.state, r.checked
	thumb, full := r.thumbnail, r.fullImage
	user, region := r.userMatrix, r.region
	versions := r.versions
	r.mu.Unlock()

	// live changes committed after the snapshot may already be queued on
	// sub; their newer versions make these replays drop out
	sub.post(fieldState, versions[fieldState], func(l Listener) { l.StateChanged(r, state, state) })
	if thumb != nil {
		sub.post(fieldThumbnail, versions[fieldThumbnail], func(l Listener) { l.ThumbnailChanged(r, thumb) })
	}
	if full != nil {
		transform := r.transformFor(user, full)
		sub.post(fieldImage, versions[fieldImage], func(l Listener) { l.DecodedImageChanged(r, full, transform) })
	}
	sub.post(fieldChecked, versions[fieldChecked], func(l Listener) { l.CheckStateChanged(r, checked, checked) })
	if !region.Empty() {
		sub.post(fieldRegion, 0, func(l Listener) { l.PreviewRegionUpdated(r, region) })
	}

	return func() {
		sub.close()
		r.mu.Lock()
		defer r.mu.Unlock()
		r.listeners = slices.DeleteFunc(slices.Clone(r.listeners), func(s *subscription) bool {
			return s == sub
		})
	}
}

// Destroyed reports whether Destroy has been called.
func (r *Record) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// Destroy detaches the record from its sibling, drops listeners and
// pending regions, and releases the decoder and metadata handles. Calling
// it again does nothing.
func (r *Record) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	sibling := r.neighbor.Value()
	r.neighbor = weak.Pointer[Record]{}
	listeners := r.listeners
	r.listeners = nil
	r.decoder = nil
	r.exif = nil
	r.mu.Unlock()

	for _, sub := range listeners {
		sub.close()
	}
	// the sibling must stop seeing us before teardown finishes
	if sibling != nil {
		sibling.detach(r)
	}
	r.coalescer.Reset()
	metrics.RecordsLive.Dec()
}

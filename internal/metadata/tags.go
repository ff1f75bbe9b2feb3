package metadata

import (
	"image"
	"sync"

	"photo-browser/internal/media"
)

// Tags is a map-backed Facade. The zero value is not usable; create one
// with NewTags.
type Tags struct {
	mu          sync.RWMutex
	ints        map[string][]int64
	rationals   map[string][2]int64
	strs        map[string]string
	orientation media.Orientation

	previewFn   func() image.Image
	previewOnce sync.Once
	preview     image.Image
}

// NewTags returns an empty tag set with Normal orientation.
func NewTags() *Tags {
	return &Tags{
		ints:      make(map[string][]int64),
		rationals: make(map[string][2]int64),
		strs:      make(map[string]string),
	}
}

// SetInt stores the elements of an integer tag, replacing previous values.
func (t *Tags) SetInt(name string, values ...int64) *Tags {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ints[name] = append([]int64(nil), values...)
	return t
}

// SetRational stores a rational tag.
func (t *Tags) SetRational(name string, num, den int64) *Tags {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rationals[name] = [2]int64{num, den}
	return t
}

// SetString stores a string tag.
func (t *Tags) SetString(name, value string) *Tags {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strs[name] = value
	return t
}

// SetOrientation sets the value returned by Orientation.
func (t *Tags) SetOrientation(o media.Orientation) *Tags {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.orientation = o
	return t
}

// SetPreview installs a fixed embedded preview.
func (t *Tags) SetPreview(img image.Image) *Tags {
	return t.SetPreviewFunc(func() image.Image { return img })
}

// SetPreviewFunc installs a function that extracts the embedded preview on
// first use. It must be called before EmbeddedPreview.
func (t *Tags) SetPreviewFunc(fn func() image.Image) *Tags {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previewFn = fn
	return t
}

// IntTag implements Facade.
func (t *Tags) IntTag(name string, index int) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	values, ok := t.ints[name]
	if !ok || index < 0 || index >= len(values) {
		return 0, false
	}
	return values[index], true
}

// RationalTag implements Facade. An integer tag is also readable as a
// rational with denominator 1.
func (t *Tags) RationalTag(name string) (int64, int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if r, ok := t.rationals[name]; ok {
		return r[0], r[1], true
	}
	if values, ok := t.ints[name]; ok && len(values) > 0 {
		return values[0], 1, true
	}
	return 0, 0, false
}

// StringTag implements Facade.
func (t *Tags) StringTag(name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.strs[name]
	return s, ok
}

// Orientation implements Facade.
func (t *Tags) Orientation() media.Orientation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.orientation
}

// EmbeddedPreview implements Facade. The preview function runs at most
// once; its result is shared by every caller.
func (t *Tags) EmbeddedPreview() image.Image {
	t.mu.RLock()
	fn := t.previewFn
	t.mu.RUnlock()
	if fn == nil {
		return nil
	}
	t.previewOnce.Do(func() {
		img := fn()
		if !media.IsEmpty(img) {
			t.preview = img
		}
	})
	return t.preview
}

// Len returns the number of tags stored, across all value types.
func (t *Tags) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ints) + len(t.rationals) + len(t.strs)
}

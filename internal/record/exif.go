package record

import (
	"image"

	"photo-browser/internal/afpoints"
	"photo-browser/internal/media"
	"photo-browser/internal/metadata"
)

// SetExif attaches a metadata handle. The memoized orientation and AF
// points belong to the previous handle and are dropped, as is the oriented
// thumbnail. Listeners get ThumbnailChanged if a thumbnail exists, since
// its displayed orientation may differ.
func (r *Record) SetExif(f metadata.Facade) {
	r.mu.Lock()
	r.exif = f
	r.exifGen++
	r.orientSet = false
	r.af = afMemo{}
	r.cache = thumbCache{}
	r.thumbGen++
	thumb := r.thumbnail
	if thumb == nil {
		r.mu.Unlock()
		return
	}
	version := r.bump(fieldThumbnail)
	listeners := r.listeners
	r.mu.Unlock()

	for _, sub := range listeners {
		sub.post(fieldThumbnail, version, func(l Listener) { l.ThumbnailChanged(r, thumb) })
	}
}

// Exif returns the attached metadata handle, or nil.
func (r *Record) Exif() metadata.Facade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exif
}

// Orientation returns the metadata orientation, Normal without metadata.
// The lookup runs once per attached handle.
func (r *Record) Orientation() media.Orientation {
	r.mu.Lock()
	if r.orientSet {
		o := r.orientMemo
		r.mu.Unlock()
		return o
	}
	f, gen := r.exif, r.exifGen
	r.mu.Unlock()

	o := media.Normal
	if f != nil {
		o = f.Orientation()
	}

	r.mu.Lock()
	if r.exifGen == gen {
		r.orientMemo = o
		r.orientSet = true
	}
	r.mu.Unlock()
	return o
}

// OrientationTransform returns the flip and rotation for the orientation.
func (r *Record) OrientationTransform() media.Transform {
	return media.Derive(r.Orientation())
}

// OrientedSize returns size with width and height swapped when the
// orientation turns the image by 90 or 270 degrees.
func (r *Record) OrientedSize(size image.Point) image.Point {
	w, h := r.OrientationTransform().Size(size.X, size.Y)
	return image.Pt(w, h)
}

// Size returns the stored pixel size: from metadata when present, else from
// the decoded image, else from the thumbnail. Zero when unknown.
func (r *Record) Size() image.Point {
	r.mu.Lock()
	f, full, thumb := r.exif, r.fullImage, r.thumbnail
	r.mu.Unlock()

	if f != nil {
		w, okW := f.IntTag(metadata.TagImageWidth, 0)
		h, okH := f.IntTag(metadata.TagImageHeight, 0)
		if okW && okH && w > 0 && h > 0 {
			return image.Pt(int(w), int(h))
		}
	}
	for _, img := range []image.Image{full, thumb} {
		if !media.IsEmpty(img) {
			return img.Bounds().Size()
		}
	}
	return image.Point{}
}

// AFPoints returns the autofocus overlay, decoding it on first use for the
// attached handle. The "no data" outcome is memoized as well.
func (r *Record) AFPoints() (afpoints.Overlay, bool) {
	r.mu.Lock()
	if r.af.set {
		memo := r.af
		r.mu.Unlock()
		return memo.overlay, memo.ok
	}
	f, gen := r.exif, r.exifGen
	r.mu.Unlock()

	if f == nil {
		return afpoints.Overlay{}, false
	}

	overlay, ok := afpoints.Decode(f)

	r.mu.Lock()
	if r.exifGen == gen && !r.af.set {
		r.af = afMemo{set: true, overlay: overlay, ok: ok}
	}
	r.mu.Unlock()
	return overlay, ok
}

// AFFineRotation returns the AF fine rotation in degrees, anti-clockwise.
func (r *Record) AFFineRotation() (float64, bool) {
	return afpoints.FineRotation(r.Exif())
}

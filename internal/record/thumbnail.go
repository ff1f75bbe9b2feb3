package record

import (
	"image"

	"photo-browser/internal/media"
	"photo-browser/internal/metrics"
)

// SetThumbnail offers a new thumbnail. It is kept only if it is wider than
// the current one; a better thumbnail is never replaced by a smaller one.
// On acceptance the oriented copy for the reference height is prepared
// before listeners are told. It reports whether img was accepted.
func (r *Record) SetThumbnail(img image.Image) bool {
	if media.IsEmpty(img) {
		metrics.RecordThumbnailUpdates.WithLabelValues("empty").Inc()
		return false
	}

	r.mu.Lock()
	if media.Width(img) <= media.Width(r.thumbnail) {
		r.mu.Unlock()
		metrics.RecordThumbnailUpdates.WithLabelValues("not_larger").Inc()
		return false
	}
	r.thumbnail = img
	r.cache = thumbCache{}
	r.thumbGen++
	gen := r.thumbGen
	version := r.bump(fieldThumbnail)
	r.mu.Unlock()

	metrics.RecordThumbnailUpdates.WithLabelValues("accepted").Inc()

	height := r.opts.ReferenceHeight
	r.commitCache(gen, height, r.orient(img, height))

	r.mu.Lock()
	listeners := r.listeners
	r.mu.Unlock()
	for _, sub := range listeners {
		sub.post(fieldThumbnail, version, func(l Listener) { l.ThumbnailChanged(r, img) })
	}
	return true
}

// Thumbnail returns the raw thumbnail in stored orientation, or nil.
func (r *Record) Thumbnail() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.thumbnail
}

// ThumbnailTransformed returns the thumbnail oriented for display and
// scaled to height. A cached copy at least that tall is reused (scaled down
// if taller). Without a thumbnail, a file-type icon or a placeholder is
// returned instead: the loading placeholder while a decoder is attached and
// the record is not Fatal, otherwise the unavailable one. A height of zero
// or less yields nil.
func (r *Record) ThumbnailTransformed(height int) image.Image {
	if height <= 0 {
		metrics.RecordThumbnailLookups.WithLabelValues("invalid").Inc()
		return nil
	}

	r.mu.Lock()
	cached := r.cache
	thumb := r.thumbnail
	gen := r.thumbGen
	decoding := r.decoder != nil && r.state != Fatal
	r.mu.Unlock()

	if cached.img != nil && cached.height >= height {
		if cached.height == height {
			metrics.RecordThumbnailLookups.WithLabelValues("exact").Inc()
			return cached.img
		}
		metrics.RecordThumbnailLookups.WithLabelValues("scaled").Inc()
		return media.ScaleToHeight(cached.img, height)
	}

	if thumb == nil {
		if r.opts.Icons != nil {
			if icon := r.opts.Icons.Icon(r.path); !media.IsEmpty(icon) {
				metrics.RecordThumbnailLookups.WithLabelValues("icon").Inc()
				return media.ScaleToHeight(icon, height)
			}
		}
		metrics.RecordThumbnailLookups.WithLabelValues("placeholder").Inc()
		placeholder := media.UnavailablePlaceholder()
		if decoding {
			placeholder = media.LoadingPlaceholder()
		}
		return media.ScaleToHeight(placeholder, height)
	}

	metrics.RecordThumbnailLookups.WithLabelValues("derived").Inc()
	out := r.orient(thumb, height)
	r.commitCache(gen, height, out)
	return out
}

// orient applies the metadata orientation to img and scales the result.
func (r *Record) orient(img image.Image, height int) image.Image {
	return media.ScaleToHeight(r.OrientationTransform().Apply(img), height)
}

// commitCache stores a derived thumbnail unless the thumbnail changed since
// gen or a taller copy is already cached.
func (r *Record) commitCache(gen uint64, height int, img image.Image) {
	if img == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.thumbGen != gen {
		return
	}
	if r.cache.img == nil || height > r.cache.height {
		r.cache = thumbCache{height: height, img: img}
	}
}

// CachedThumbnailHeight returns the height of the cached oriented
// thumbnail, or 0 when nothing is cached.
func (r *Record) CachedThumbnailHeight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache.img == nil {
		return 0
	}
	return r.cache.height
}

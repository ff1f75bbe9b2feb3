package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"photo-browser/internal/collection"
	"photo-browser/internal/config"
	"photo-browser/internal/dispatch"
	"photo-browser/internal/record"
)

// Pipeline is the part of the decode pipeline the API drives.
type Pipeline interface {
	Restart(r *record.Record) error
	Pending() int
}

// ScanClock reports when the library was last scanned.
type ScanClock interface {
	LastScan(ctx context.Context) (time.Time, error)
}

type Handlers struct {
	library         *collection.Collection
	pipeline        Pipeline
	loop            *dispatch.Loop
	events          *Events
	scans           ScanClock
	thumbnailHeight int
	startTime       time.Time
	ready           atomic.Bool
}

func New(library *collection.Collection, pipeline Pipeline, loop *dispatch.Loop, events *Events, scans ScanClock, cfg *config.Config) *Handlers {
	height := cfg.ThumbnailHeight
	if height <= 0 {
		height = record.DefaultReferenceHeight
	}
	return &Handlers{
		library:         library,
		pipeline:        pipeline,
		loop:            loop,
		events:          events,
		scans:           scans,
		thumbnailHeight: height,
		startTime:       time.Now(),
	}
}

// MarkReady flags the initial library scan as finished.
func (h *Handlers) MarkReady() {
	h.ready.Store(true)
}

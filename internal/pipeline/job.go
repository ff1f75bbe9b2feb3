package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"photo-browser/internal/media"
	"photo-browser/internal/metadata"
	"photo-browser/internal/metrics"
	"photo-browser/internal/record"

	"golang.org/x/image/draw"
)

// job decodes one record. It is the record's Decoder.
type job struct {
	rec    *record.Record
	ctx    context.Context
	cancel context.CancelFunc
}

func newJob(parent context.Context, r *record.Record) *job {
	ctx, cancel := context.WithCancel(parent)
	return &job{rec: r, ctx: ctx, cancel: cancel}
}

// Cancel implements record.Decoder.
func (j *job) Cancel() { j.cancel() }

func (p *Pipeline) run(j *job) {
	defer p.finish(j)

	start := time.Now()
	err := p.decode(j)
	outcome := p.report(j.rec, err)
	metrics.PipelineJobsTotal.WithLabelValues(outcome).Inc()

	name := filepath.Base(j.rec.Path())
	switch outcome {
	case "full":
		p.log.Debug("%s decoded in %v", name, time.Since(start).Round(time.Millisecond))
	case "cancelled":
		p.log.Debug("%s cancelled", name)
	default:
		p.log.Warn("%s: %v", name, err)
	}
}

// report moves the record to the state matching err and returns the
// outcome label.
func (p *Pipeline) report(r *record.Record, err error) string {
	switch {
	case err == nil:
		r.SetState(record.FullImage)
		return "full"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		r.SetState(record.Cancelled)
		return "cancelled"
	case errors.Is(err, ErrUnsupported):
		r.SetFatal(err.Error())
		return "fatal"
	default:
		r.SetError(err.Error())
		return "error"
	}
}

func (p *Pipeline) decode(j *job) error {
	ctx, r := j.ctx, j.rec
	if err := alive(ctx, r); err != nil {
		return err
	}

	facade := p.loadMetadata(ctx, r)
	if err := alive(ctx, r); err != nil {
		return err
	}
	r.SetState(record.Metadata)

	preview := p.loadPreview(facade, r)
	if err := alive(ctx, r); err != nil {
		return err
	}

	if p.opts.Memory != nil {
		if err := p.opts.Memory.WaitIfPaused(ctx); err != nil {
			// the monitor only stops at shutdown
			return fmt.Errorf("%w: %v", context.Canceled, err)
		}
	}

	start := time.Now()
	img, err := p.opts.Decode(ctx, r.Path(), p.opts.MaxDimension)
	if errors.Is(err, ErrUnsupported) && !media.IsEmpty(preview) {
		p.log.Debug("%s: using the embedded preview as the full image", filepath.Base(r.Path()))
		img, err = preview, nil
	}
	if err != nil {
		return err
	}
	if media.IsEmpty(img) {
		return fmt.Errorf("%w: decoder returned no pixels", ErrUnsupported)
	}

	if err := p.deliver(ctx, r, img); err != nil {
		return err
	}
	observeStage("full", start)

	thumb := img
	if img.Bounds().Dy() > p.opts.ThumbnailHeight {
		thumb = media.ScaleToHeight(img, p.opts.ThumbnailHeight)
	}
	r.SetThumbnail(thumb)
	return nil
}

func (p *Pipeline) loadMetadata(ctx context.Context, r *record.Record) metadata.Facade {
	if p.opts.Loader == nil {
		return nil
	}
	start := time.Now()
	defer observeStage("metadata", start)

	facade, err := p.opts.Loader.Load(ctx, r.Path())
	if err != nil {
		if ctx.Err() == nil {
			p.log.Debug("no metadata for %s: %v", filepath.Base(r.Path()), err)
		}
		return nil
	}
	r.SetExif(facade)
	return facade
}

func (p *Pipeline) loadPreview(facade metadata.Facade, r *record.Record) image.Image {
	if facade == nil {
		return nil
	}
	start := time.Now()
	defer observeStage("preview", start)

	preview := facade.EmbeddedPreview()
	if media.IsEmpty(preview) {
		return nil
	}
	r.SetThumbnail(preview)
	r.SetState(record.PreviewImage)
	return preview
}

// deliver copies img into the record band by band so listeners can draw the
// decoded rows as they arrive.
func (p *Pipeline) deliver(ctx context.Context, r *record.Record, img image.Image) error {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	r.SetDecodedImage(dst)

	for y := bounds.Min.Y; y < bounds.Max.Y; y += p.opts.BandHeight {
		if err := alive(ctx, r); err != nil {
			return err
		}
		band := image.Rect(bounds.Min.X, y, bounds.Max.X, min(y+p.opts.BandHeight, bounds.Max.Y))
		draw.Draw(dst, band, img, band.Min, draw.Src)
		r.UpdatePreviewRegion(band)
	}

	r.SetDecodedImage(dst)
	return nil
}

// alive returns the reason to stop, if any.
func alive(ctx context.Context, r *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Destroyed() {
		return context.Canceled
	}
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"photo-browser/internal/logging"
	"photo-browser/internal/media"
	"photo-browser/internal/metadata"
	"photo-browser/internal/metrics"
	"photo-browser/internal/record"

	"golang.org/x/sync/errgroup"
)

// ErrUnsupported marks files that no available decoder can read. Jobs
// failing with it leave the record Fatal.
var ErrUnsupported = errors.New("unsupported file format")

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("pipeline stopped")

const (
	defaultQueueSize  = 4096
	defaultBandHeight = 128
)

// DecodeFunc decodes the full image at path, downscaled so neither side
// exceeds maxDimension. Pixels stay in stored orientation.
type DecodeFunc func(ctx context.Context, path string, maxDimension int) (image.Image, error)

// Waiter blocks while decoding must pause. memory.Monitor implements it.
type Waiter interface {
	WaitIfPaused(ctx context.Context) error
}

// Options configures a Pipeline.
type Options struct {
	// Workers is the number of concurrent jobs. Values below 1 mean 1.
	Workers int
	// Loader reads file metadata. Nil skips the metadata step.
	Loader metadata.Loader
	// Decode decodes full images. Nil uses DefaultDecoder(true).
	Decode DecodeFunc
	// Memory gates full decodes. Nil never waits.
	Memory Waiter
	// MaxDimension caps the decoded size. 0 uses media.MaxImageDimension.
	MaxDimension int
	// ThumbnailHeight is the height of thumbnails derived from full images.
	ThumbnailHeight int
	// BandHeight is the number of rows reported per preview region.
	BandHeight int
	// QueueSize bounds the jobs waiting for a worker.
	QueueSize int
}

// Pipeline runs decode jobs on a worker pool.
type Pipeline struct {
	opts Options
	log  logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	queue  chan *job
	group  *errgroup.Group
	start  sync.Once

	mu   sync.Mutex
	jobs map[*record.Record]*job
}

// New creates a stopped pipeline. Jobs queue until Start.
func New(opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Decode == nil {
		opts.Decode = DefaultDecoder(true)
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = media.MaxImageDimension
	}
	if opts.ThumbnailHeight <= 0 {
		opts.ThumbnailHeight = record.DefaultReferenceHeight
	}
	if opts.BandHeight <= 0 {
		opts.BandHeight = defaultBandHeight
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		opts:   opts,
		log:    logging.For("pipeline"),
		ctx:    ctx,
		cancel: cancel,
		queue:  make(chan *job, opts.QueueSize),
		jobs:   make(map[*record.Record]*job),
	}
}

// Start launches the workers. They run until ctx is done or Stop is
// called. Calling Start again does nothing.
func (p *Pipeline) Start(ctx context.Context) {
	p.start.Do(func() {
		context.AfterFunc(ctx, p.cancel)

		g, gctx := errgroup.WithContext(p.ctx)
		for i := 0; i < p.opts.Workers; i++ {
			g.Go(func() error {
				p.worker(gctx)
				return nil
			})
		}
		p.group = g
		metrics.PipelineWorkers.Set(float64(p.opts.Workers))
		p.log.Info("Started %d decode workers", p.opts.Workers)
	})
}

// Stop cancels every job and waits for the workers to exit.
func (p *Pipeline) Stop() {
	p.cancel()
	p.start.Do(func() {})
	if p.group != nil {
		_ = p.group.Wait()
	}
	metrics.PipelineWorkers.Set(0)

	for {
		select {
		case j := <-p.queue:
			metrics.PipelineQueueDepth.Dec()
			p.finish(j)
		default:
			return
		}
	}
}

func (p *Pipeline) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.queue:
			metrics.PipelineQueueDepth.Dec()
			p.run(j)
		}
	}
}

// Enqueue schedules a decode of r and attaches the job as r's decoder. A
// job already pending for r is kept.
func (p *Pipeline) Enqueue(r *record.Record) error {
	if p.ctx.Err() != nil {
		return ErrStopped
	}
	p.mu.Lock()
	if _, ok := p.jobs[r]; ok {
		p.mu.Unlock()
		return nil
	}
	j := newJob(p.ctx, r)
	p.jobs[r] = j
	p.mu.Unlock()

	r.SetDecoder(j)
	select {
	case p.queue <- j:
		metrics.PipelineQueueDepth.Inc()
		return nil
	case <-p.ctx.Done():
		p.finish(j)
		return ErrStopped
	}
}

// Cancel stops the job decoding r, if any. The record becomes Cancelled
// once the job notices.
func (p *Pipeline) Cancel(r *record.Record) {
	p.mu.Lock()
	j := p.jobs[r]
	p.mu.Unlock()
	if j != nil {
		j.Cancel()
	}
}

// Restart cancels any job for r, forgets the regions it delivered and
// schedules a new decode.
func (p *Pipeline) Restart(r *record.Record) error {
	p.mu.Lock()
	if j := p.jobs[r]; j != nil {
		j.Cancel()
		delete(p.jobs, r)
	}
	p.mu.Unlock()

	r.ResetPreviewRegion()
	return p.Enqueue(r)
}

// Pending returns the number of jobs not yet finished.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.jobs)
}

// finish detaches j from its record unless a newer job replaced it.
func (p *Pipeline) finish(j *job) {
	j.Cancel()

	p.mu.Lock()
	current := p.jobs[j.rec] == j
	if current {
		delete(p.jobs, j.rec)
	}
	p.mu.Unlock()

	if current && j.rec.Decoder() == record.Decoder(j) {
		j.rec.SetDecoder(nil)
	}
}

func observeStage(stage string, start time.Time) {
	metrics.PipelineStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

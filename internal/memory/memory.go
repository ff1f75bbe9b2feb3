package memory

import (
	"context"
	"errors"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"photo-browser/internal/logging"
	"photo-browser/internal/metrics"

	"github.com/dustin/go-humanize"
)

// ErrStopped is returned by WaitIfPaused once the monitor has been stopped.
var ErrStopped = errors.New("memory monitor stopped")

// Config holds memory management configuration
type Config struct {
	// LimitBytes is the soft memory limit (0 = use GOMEMLIMIT or no limit)
	LimitBytes int64

	// HighWaterMark is the share of the limit below which paused decoding resumes (0.0-1.0)
	HighWaterMark float64

	// CriticalWaterMark is the share of the limit at which decoding pauses (0.0-1.0)
	CriticalWaterMark float64

	// CheckInterval is how often to sample memory usage
	CheckInterval time.Duration
}

// DefaultConfig returns sensible defaults for memory management
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Monitor tracks heap usage and pauses full-resolution decoding under
// pressure.
type Monitor struct {
	config Config
	limit  int64
	log    logging.Logger
	sample func() uint64

	stopOnce sync.Once
	stopChan chan struct{}

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}
}

// NewMonitor creates a new memory monitor
func NewMonitor(config Config) *Monitor {
	log := logging.For("memory")
	limit := config.LimitBytes

	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < math.MaxInt64 {
			limit = goMemLimit
			log.Info("Memory monitor using GOMEMLIMIT: %s", humanize.IBytes(uint64(limit)))
		}
	}
	if limit == 0 {
		log.Warn("Memory monitor: no memory limit configured, backpressure disabled")
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}

	return &Monitor{
		config:   config,
		limit:    limit,
		log:      log,
		sample:   heapAlloc,
		stopChan: make(chan struct{}),
		resume:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Start begins monitoring memory usage
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.monitorLoop()
}

// Stop stops the monitor and releases every waiter with ErrStopped. It is
// safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
}

func (m *Monitor) monitorLoop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.checkMemory()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) checkMemory() {
	alloc := m.sample()

	m.mu.Lock()
	m.current = alloc
	if m.limit <= 0 {
		m.mu.Unlock()
		return
	}
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	changed := false
	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		m.paused = true
		changed = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		m.paused = false
		changed = true
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
	paused := m.paused
	m.mu.Unlock()

	if !changed {
		return
	}
	if paused {
		m.log.Warn("Memory critical (%.1f%% of %s), pausing full decodes", usage*100, humanize.IBytes(uint64(m.limit)))
	} else {
		m.log.Info("Memory recovered (%.1f%% of %s), resuming full decodes", usage*100, humanize.IBytes(uint64(m.limit)))
	}
}

// WaitIfPaused blocks while decoding is paused. It returns nil when it is
// safe to proceed, ctx.Err() when ctx ends first, and ErrStopped when the
// monitor is stopped.
func (m *Monitor) WaitIfPaused(ctx context.Context) error {
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return nil
	}
	resume := m.resume
	m.mu.RUnlock()

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.stopChan:
		return ErrStopped
	}
}

// IsPaused returns true if full-resolution decoding should wait
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Stats returns the last sampled heap size, the limit and their ratio.
// The ratio is 0 if no limit is configured.
func (m *Monitor) Stats() (current, limit int64, usage float64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	current = math.MaxInt64
	if m.current <= math.MaxInt64 {
		current = int64(m.current)
	}
	if m.limit > 0 {
		usage = float64(m.current) / float64(m.limit)
	}
	return current, m.limit, usage
}

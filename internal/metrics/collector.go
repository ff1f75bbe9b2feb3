package metrics

import (
	"time"

	"photo-browser/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	Stats() Stats
}

// Stats holds a snapshot of the browsing collection.
type Stats struct {
	Raw       int
	Processed int
	Pairs     int
	Checked   int
	// ByState counts records per decoding state label (see States).
	ByState map[string]int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.Stats()

	CollectionItems.WithLabelValues("raw").Set(float64(stats.Raw))
	CollectionItems.WithLabelValues("processed").Set(float64(stats.Processed))
	CollectionPairs.Set(float64(stats.Pairs))
	CollectionChecked.Set(float64(stats.Checked))
	for _, state := range States {
		CollectionByState.WithLabelValues(state).Set(float64(stats.ByState[state]))
	}

	logging.Debug("Metrics collected: raw=%d, processed=%d, pairs=%d, checked=%d",
		stats.Raw, stats.Processed, stats.Pairs, stats.Checked)
}

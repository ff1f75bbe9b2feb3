package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_browser_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	EventSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_event_subscribers",
			Help: "Number of connected server-sent event subscribers",
		},
	)
)

// Record metrics
var (
	RecordsLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_records_live",
			Help: "Number of item records that have not been destroyed",
		},
	)

	RecordStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_record_state_transitions_total",
			Help: "Decoding state transitions by previous and new state",
		},
		[]string{"from", "to"},
	)

	RecordFatalAbsorbed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_browser_record_fatal_absorbed_total",
			Help: "Error or Cancelled transitions dropped because the record was already Fatal",
		},
	)

	RecordThumbnailUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_record_thumbnail_updates_total",
			Help: "Thumbnail updates by outcome (accepted, empty, not_larger)",
		},
		[]string{"outcome"},
	)

	RecordThumbnailLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_record_thumbnail_lookups_total",
			Help: "Transformed thumbnail lookups by how they were served",
		},
		[]string{"result"},
	)
)

// Autofocus metrics
var (
	AFDecodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_af_decodes_total",
			Help: "Autofocus point decodes by outcome",
		},
		[]string{"outcome"},
	)

	AFDecodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_browser_af_decode_duration_seconds",
			Help:    "Time spent decoding autofocus points, including metadata reads",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)
)

// Coalescer metrics
var (
	CoalescerRectsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_browser_coalescer_rects_added_total",
			Help: "Partial-decode rectangles received by coalescers",
		},
	)

	CoalescerEventsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_browser_coalescer_events_emitted_total",
			Help: "Coalesced preview-region events delivered",
		},
	)

	CoalescerResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_browser_coalescer_resets_total",
			Help: "Explicit coalescer resets",
		},
	)
)

// Pipeline metrics
var (
	PipelineJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_pipeline_jobs_total",
			Help: "Decode jobs by final outcome",
		},
		[]string{"outcome"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_browser_pipeline_stage_duration_seconds",
			Help:    "Duration of each decode stage",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"},
	)

	PipelineQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_pipeline_queue_depth",
			Help: "Decode jobs waiting for a worker",
		},
	)

	PipelineWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_pipeline_workers",
			Help: "Number of decode workers",
		},
	)
)

// Catalog (sqlite) metrics
var (
	CatalogQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_catalog_queries_total",
			Help: "Catalog queries by operation and status",
		},
		[]string{"operation", "status"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_browser_catalog_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// Collection metrics
var (
	CollectionItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_browser_collection_items",
			Help: "Items in the browsing collection by kind",
		},
		[]string{"kind"},
	)

	CollectionByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_browser_collection_items_by_state",
			Help: "Items in the browsing collection by decoding state",
		},
		[]string{"state"},
	)

	CollectionChecked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_collection_checked_items",
			Help: "Items the user has checked",
		},
	)

	CollectionPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_collection_pairs",
			Help: "RAW/processed neighbor pairs in the collection",
		},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_watcher_events_total",
			Help: "Filesystem watcher events by type",
		},
		[]string{"type"},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_browser_watcher_errors_total",
			Help: "Filesystem watcher errors",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_watched_directories",
			Help: "Directories registered with the filesystem watcher",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_browser_memory_paused",
			Help: "Whether full-resolution decoding is paused for memory (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_browser_memory_gc_pauses_total",
			Help: "Times decoding was paused and a GC forced due to memory pressure",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_filesystem_retry_attempts_total",
			Help: "Retries after a stale file handle, by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_filesystem_retry_failures_total",
			Help: "Operations that still failed with a stale handle after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_browser_filesystem_stale_errors_total",
			Help: "Stale file handle errors seen",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_browser_filesystem_operation_duration_seconds",
			Help:    "Duration of stat and open calls including retries",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation", "volume"},
	)
)

// Package metrics provides Prometheus instrumentation for the photo browser.
//
// All metrics are package-level promauto variables prefixed with
// "photo_browser_" and are exported on /metrics by the HTTP server.
//
// # Metric Categories
//
// ## Record Metrics
//
// Track the per-item decoding state machine and caches:
//   - RecordsLive: Gauge of records not yet destroyed
//   - RecordStateTransitions: Counter by from/to state
//   - RecordFatalAbsorbed: Counter of Error/Cancelled signals masked by Fatal
//   - RecordThumbnailUpdates: Counter of thumbnail updates by outcome
//   - RecordThumbnailLookups: Counter of transformed thumbnail lookups by result
//
// ## Autofocus Metrics
//
//   - AFDecodesTotal: Counter by outcome (decoded, no_data, unsupported_model, malformed)
//   - AFDecodeDuration: Histogram of decode time
//
// ## Coalescer Metrics
//
//   - CoalescerRectsAdded, CoalescerEventsEmitted, CoalescerResets
//
// The ratio of rects added to events emitted shows how much redraw churn
// the coalescers absorb:
//
//	rate(photo_browser_coalescer_rects_added_total[5m]) /
//	rate(photo_browser_coalescer_events_emitted_total[5m])
//
// ## Pipeline, Catalog, Collection and Memory Metrics
//
//   - PipelineJobsTotal, PipelineStageDuration, PipelineQueueDepth, PipelineWorkers
//   - CatalogQueryTotal, CatalogQueryDuration
//   - CollectionItems, CollectionByState, CollectionChecked, CollectionPairs
//   - WatcherEventsTotal, WatcherErrors, WatchedDirectories
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses
//
// # Collector
//
// The Collector type periodically pulls a Stats snapshot from a
// StatsProvider (the browsing collection) and updates the collection gauges:
//
//	collector := metrics.NewCollector(coll, 30*time.Second)
//	collector.Start()
//	defer collector.Stop()
package metrics

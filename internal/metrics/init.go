package metrics

// States lists the decoding state labels used by RecordStateTransitions.
// It must stay in sync with record.State.String.
var States = []string{"unknown", "metadata", "preview", "full", "error", "cancelled", "fatal"}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, from := range States {
		for _, to := range States {
			if from != to {
				RecordStateTransitions.WithLabelValues(from, to)
			}
		}
	}

	for _, outcome := range []string{"accepted", "empty", "not_larger"} {
		RecordThumbnailUpdates.WithLabelValues(outcome)
	}

	for _, result := range []string{"invalid", "exact", "scaled", "derived", "icon", "placeholder"} {
		RecordThumbnailLookups.WithLabelValues(result)
	}

	for _, outcome := range []string{"decoded", "no_data", "unsupported_model", "malformed"} {
		AFDecodesTotal.WithLabelValues(outcome)
	}

	for _, outcome := range []string{"full", "error", "cancelled", "fatal"} {
		PipelineJobsTotal.WithLabelValues(outcome)
	}

	for _, stage := range []string{"metadata", "preview", "full"} {
		PipelineStageDuration.WithLabelValues(stage)
	}

	for _, op := range []string{"initialize_schema", "get_check_state", "set_check_state",
		"forget_check_state", "load_check_states", "get_metadata", "set_metadata"} {
		CatalogQueryTotal.WithLabelValues(op, "success")
		CatalogQueryTotal.WithLabelValues(op, "error")
		CatalogQueryDuration.WithLabelValues(op)
	}

	for _, kind := range []string{"raw", "processed"} {
		CollectionItems.WithLabelValues(kind)
	}

	for _, t := range []string{"create", "write", "remove", "rename", "chmod", "unknown"} {
		WatcherEventsTotal.WithLabelValues(t)
	}

	for _, op := range []string{"stat", "open"} {
		for _, volume := range []string{"library", "database"} {
			FilesystemStaleErrors.WithLabelValues(op, volume)
			FilesystemRetryFailures.WithLabelValues(op, volume)
		}
	}
}

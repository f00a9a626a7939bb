package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(engines []string) {
	// --- Image engine operations (per engine × operation) ---
	ops := []string{"read", "resize", "crop", "rotate", "flip", "flop", "save", "encode"}

	for _, engine := range engines {
		for _, op := range ops {
			OperationsTotal.WithLabelValues(engine, op, "success")
			OperationsTotal.WithLabelValues(engine, op, "error")
			OperationDuration.WithLabelValues(engine, op)
		}
	}

	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"media", "cache", "unknown"}
	fsOps := []string{"stat", "open", "read", "write", "chmod"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
	}

	// --- Filesystem retry metrics (per retry-operation × volume) ---
	retryOps := []string{"stat", "open", "read"}

	for _, op := range retryOps {
		for _, vol := range volumes {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Thumbnail generation by mode ---
	for _, mode := range []string{"fit", "fill", "percent", "crop", "center"} {
		ThumbnailGenerationDuration.WithLabelValues(mode)
		for _, status := range []string{"success", "error", "error_not_found", "error_invalid", "error_unsupported"} {
			ThumbnailGenerationsTotal.WithLabelValues(mode, status)
		}
	}
}

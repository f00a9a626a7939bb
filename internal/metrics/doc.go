// Package metrics provides Prometheus instrumentation for the thumbnailer
// service.
//
// All metrics are prefixed with "thumbnailer_" to avoid naming collisions
// with other applications.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Image Engine Metrics
//
// Every engine call made by a thumbnail session (read, resize, crop,
// rotate, flip, flop, save, encode) is recorded through the observer
// returned by [NewThumbnailObserver]:
//   - OperationsTotal: Counter by engine, operation and status
//   - OperationDuration: Histogram by engine and operation
//   - EngineInfo: Gauge of engine availability, labeled with the selected engine
//
// ## Thumbnail Metrics
//
//   - ThumbnailGenerationsTotal: Counter by mode (fit/fill/percent/crop/center) and status
//   - ThumbnailGenerationDuration: Histogram of generation time by mode
//   - ThumbnailCacheHits / ThumbnailCacheMisses: Cache counters
//   - ThumbnailCacheSize / ThumbnailCacheCount: Cache gauges, updated by [Collector]
//   - WorkersBusy / WorkersLimit / WorkerWaitDuration: Session concurrency
//
// ## Memory Metrics
//
//   - GoMemLimit: Gauge of the configured GOMEMLIMIT
//   - MemoryUsageRatio: Gauge of heap allocation as a ratio of the limit
//   - MemoryPaused / MemoryGCPauses: Backpressure state and pause count
//
// ## Filesystem Metrics
//
// Recorded through [NewFilesystemObserver], labeled by volume and operation,
// including retries after stale NFS file handles.
//
// # Usage
//
// Metrics are automatically registered with the default Prometheus registry
// using promauto. To expose them, mount the promhttp.Handler() on your
// metrics endpoint:
//
//	router.Handle("/metrics", promhttp.Handler())
//
// Wire the observers once at startup:
//
//	thumbnail.SetObserver(metrics.NewThumbnailObserver())
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	metrics.InitializeMetrics(backend.DefaultPriority)
//
// # Prometheus Queries
//
// P95 resize latency by engine:
//
//	histogram_quantile(0.95, sum(rate(thumbnailer_operation_duration_seconds_bucket{operation="resize"}[5m])) by (le, engine))
//
// Thumbnail cache hit rate:
//
//	rate(thumbnailer_cache_hits_total[5m]) /
//	(rate(thumbnailer_cache_hits_total[5m]) + rate(thumbnailer_cache_misses_total[5m]))
package metrics

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Image engine metrics
var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_operations_total",
			Help: "Total number of image engine operations",
		},
		[]string{"engine", "operation", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_operation_duration_seconds",
			Help:    "Image engine operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"engine", "operation"},
	)

	EngineInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnailer_engine_info",
			Help: "Image engine availability (1 = available, 0 = unavailable)",
		},
		[]string{"engine", "selected"},
	)
)

// Thumbnail service metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"mode", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	ThumbnailCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	ThumbnailCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_cache_misses_total",
			Help: "Total number of thumbnail cache misses",
		},
	)

	ThumbnailCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_cache_size_bytes",
			Help: "Total size of the thumbnail cache in bytes",
		},
	)

	ThumbnailCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_cache_count",
			Help: "Number of thumbnails in the cache",
		},
	)

	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_cache_invalidations_total",
			Help: "Cached thumbnails removed because their source changed",
		},
	)

	WatcherWatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_watcher_watched_directories",
			Help: "Number of media directories watched for changes",
		},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_watcher_errors_total",
			Help: "Total number of media watcher errors",
		},
	)

	WorkersBusy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_workers_busy",
			Help: "Number of thumbnail sessions currently running",
		},
	)

	WorkersLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_workers_limit",
			Help: "Maximum number of concurrent thumbnail sessions",
		},
	)

	WorkerWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_worker_wait_seconds",
			Help:    "Time spent waiting for a free thumbnail worker",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts after stale NFS handles",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "thumbnailer_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retrying filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "thumbnailer_filesystem_stale_errors_total",
			Help: "Total number of stale NFS file handle errors",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 = unlimited)",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_memory_usage_ratio",
			Help: "Go heap allocation as a ratio of the memory limit (0.0-1.0)",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "thumbnailer_memory_paused",
			Help: "Whether new thumbnail sessions are paused due to memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "thumbnailer_memory_gc_pauses_total",
			Help: "Total number of times processing was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "thumbnailer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// SetEngineInfo records which engines are available and which one serves
// requests.
func SetEngineInfo(available map[string]bool, selected string) {
	EngineInfo.Reset()
	for engine, ok := range available {
		value := 0.0
		if ok {
			value = 1
		}
		EngineInfo.WithLabelValues(engine, boolLabel(engine == selected)).Set(value)
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig].
// Invalid values are logged and replaced by their defaults.
//
//   - MEDIA_DIR: Directory thumbnails are generated from (default: /media)
//   - CACHE_DIR: Directory for generated thumbnails (default: /cache)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_CACHE_HITS: Log thumbnail requests served from the cache (default: true)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - MEMORY_LIMIT: Container memory limit for automatic GOMEMLIMIT configuration
//   - MEMORY_RATIO: Share of MEMORY_LIMIT for the Go heap (default: 0.75)
//   - GOMEMLIMIT: Direct override for Go's memory limit
//   - THUMBNAIL_WORKERS: Concurrent thumbnail sessions (default: CPU count)
//   - CACHE_STATS_INTERVAL: How often cache size metrics are refreshed (default: 1m)
//
// Thumbnail session options:
//
//   - THUMB_ENGINES: Comma separated engine priority, e.g. "imaging,raster"
//     (default: vips,imaging,raster)
//   - THUMB_RESIZE_UP: Allow enlarging images (default: false)
//   - THUMB_JPEG_QUALITY: JPEG quality 0-100 (default: 100)
//   - THUMB_PRESERVE_ALPHA: Keep the alpha channel of PNG output (default: true)
//   - THUMB_ALPHA_MASK_COLOR: Hex background when alpha is dropped (default: #ffffff)
//   - THUMB_PRESERVE_TRANSPARENCY: Keep GIF transparency (default: true)
//   - THUMB_TRANSPARENCY_MASK_COLOR: Hex GIF transparency key (default: #000000)
//   - THUMB_CORRECT_PERMISSIONS: chmod 0644 saved thumbnails (default: false)
//   - THUMB_DEFAULT_SIZE: Bounding box when a request names no size (default: 200)
//   - THUMB_MAX_SIZE: Largest accepted dimension (default: 2048)
//   - THUMB_DEFAULT_FORMAT: Output format, or "source" to keep the input's (default: source)
//
// # Directory Setup
//
//   - Media directory: Required, created if missing
//   - Cache directory: Optional, thumbnails are cached under CACHE_DIR/thumbnails when writable
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogMemoryConfig]: Memory limit configuration
//   - [LogEngineInit]: Image engine probe results and the chosen engine
//   - [LogThumbnailInit]: Thumbnail service configuration
//   - [LogHTTPRoutes]: Registered HTTP routes (debug level)
//   - [LogServerStarted]: Server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownStep], [LogShutdownComplete]
package startup

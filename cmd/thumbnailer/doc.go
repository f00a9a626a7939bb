// Package main provides the entry point for the thumbnailer service.
//
// thumbnailer serves resized, cropped and rotated thumbnails of the images
// under MEDIA_DIR over HTTP, running each request on the first available
// image engine (libvips, imaging or the pure Go raster engine).
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables and validates directories
//  2. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT and starts the
//     memory monitor that holds back new sessions under pressure
//  3. Engine Selection: Probes every engine in THUMB_ENGINES order
//  4. Component Initialization:
//     - Metrics: engine info, observers for sessions and filesystem retries
//     - Thumbnail Generator: disk cache under CACHE_DIR/thumbnails
//     - Media Watcher: removes cached thumbnails of changed sources
//     - Metrics Collector: refreshes cache size gauges
//  5. HTTP Server Setup: Routes, metrics/logging/compression middleware
//  6. Graceful Shutdown: Handles SIGINT/SIGTERM, stops all components cleanly
//
// # HTTP Servers
//
//  1. Main Server (default port 8080):
//     - GET /api/thumbnail/{path}: thumbnail of an image
//     - GET /api/info/{path}: dimensions and format of an image
//     - GET /api/engine: selected engine and supported formats
//     - GET /health, /healthz, /livez, /readyz: probes
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests (30s timeout)
//  2. Shutdown metrics server
//  3. Stop media watcher and metrics collector
//  4. Stop memory monitor
//  5. Shut down libvips
//
// # Build Requirements
//
// libvips support needs cgo and the libvips headers. Built with
// CGO_ENABLED=0 the service runs on the imaging and raster engines only.
//
//	go build -o thumbnailer ./cmd/thumbnailer
package main

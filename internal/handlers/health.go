package handlers

import (
	"net/http"
	"runtime"
	"time"

	"thumbnailer/internal/startup"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Engine         string `json:"engine"`
	CacheEnabled   bool   `json:"cacheEnabled"`
	MemoryPaused   bool   `json:"memoryPaused"`
	CachedEntries  int    `json:"cachedEntries"`
	CacheSizeBytes int64  `json:"cacheSizeBytes"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	stats := h.thumbGen.GetStats()

	response := HealthResponse{
		Status:         statusHealthy,
		Ready:          h.engine != nil,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		CacheEnabled:   h.thumbGen.IsEnabled(),
		CachedEntries:  stats.CachedThumbnails,
		CacheSizeBytes: stats.CacheBytes,
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	if h.engine != nil {
		response.Engine = h.engine.Name()
	}

	// Memory pressure only delays requests, so it degrades rather than fails.
	if h.pressure != nil && h.pressure.IsPaused() {
		response.MemoryPaused = true
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	if !response.Ready {
		response.Status = statusUnhealthy
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when new thumbnails can be generated
// without waiting on memory pressure.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.engine != nil && (h.pressure == nil || !h.pressure.IsPaused()) {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}

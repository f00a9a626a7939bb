// Package memory controls Go's runtime memory usage in containerized
// environments and provides backpressure for thumbnail sessions.
//
// # Configuration
//
// GOMEMLIMIT is not derived from cgroup limits automatically. [Configure]
// sets it from the container limit (MEMORY_LIMIT, usually injected through
// the Kubernetes Downward API) and a ratio (MEMORY_RATIO, default
// [DefaultMemoryRatio]). The remainder is left for libvips, which allocates
// pixel buffers outside the Go heap:
//
//	result := memory.Configure(cfg.MemoryLimit, cfg.MemoryRatio)
//
// An explicit GOMEMLIMIT in the environment always wins.
//
// # Backpressure
//
// A [Monitor] samples heap usage. Once usage reaches the critical mark new
// sessions wait in [Monitor.Wait] until it drops below the high mark:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	limiter := workers.NewLimiter(workers.ForCPU(8), monitor)
package memory

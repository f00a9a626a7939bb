/*
Package workers sizes and bounds the concurrent thumbnail sessions of the
service in containerized environments.

# Sizing

runtime.NumCPU() reports the host's CPUs, while GOMAXPROCS follows the
container CPU limit (Go 1.19+). The helpers size pools from GOMAXPROCS:

	workers.ForCPU(8)   // 1 per CPU, max 8: decode, resize, encode
	workers.ForIO(16)   // 2 per CPU, max 16
	workers.ForMixed(12) // 1.5 per CPU, max 12

[Count] takes a custom multiplier; a limit of 0 means no maximum.

Thumbnail generation is CPU bound, so the service uses ForCPU. Operators can
override the result with THUMBNAIL_WORKERS:

	env:
	- name: THUMBNAIL_WORKERS
	  value: "4"

# Limiter

A [Limiter] holds the session slots. The HTTP handler wraps every thumbnail
generation in [Limiter.Do]; with a [Pressure] source (the memory monitor)
new sessions also wait while the heap is near its limit:

	limiter := workers.NewLimiter(workers.ForCPU(8), monitor)

	err := limiter.Do(r.Context(), func() error {
	    return generate(path)
	})

All functions and Limiter methods in this package are safe for concurrent
use.
*/
package workers

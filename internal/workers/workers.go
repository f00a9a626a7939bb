package workers

import (
	"os"
	"runtime"
	"strconv"

	"thumbnailer/internal/logging"
)

// EnvOverride names the environment variable that fixes the worker count.
const EnvOverride = "THUMBNAIL_WORKERS"

// Count returns the number of workers for a task with the given
// CPU multiplier, capped at limit (0 for no cap). It respects container
// CPU limits via GOMAXPROCS. A positive EnvOverride value replaces the
// computed count but is still capped.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		count, err := strconv.Atoi(override)
		if err == nil && count > 0 {
			return capAt(count, limit)
		}
		logging.Warn("Invalid %s value %q, sizing from GOMAXPROCS", EnvOverride, override)
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)
	if workers < 1 {
		workers = 1
	}

	return capAt(workers, limit)
}

func capAt(count, limit int) int {
	if limit > 0 && count > limit {
		return limit
	}
	return count
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

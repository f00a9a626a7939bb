package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"thumbnailer/internal/logging"
	"thumbnailer/internal/metrics"
)

const (
	// DefaultMemoryRatio is the share of the container limit given to the Go
	// heap. libvips allocates its pixel buffers outside the Go heap, so the
	// rest is left for it.
	DefaultMemoryRatio = 0.75
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether GOMEMLIMIT was set
	Configured bool

	// Source indicates where the configuration came from
	Source string // "GOMEMLIMIT", "MEMORY_LIMIT", or "none"

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// Configure sets GOMEMLIMIT to ratio of containerLimit. An explicit
// GOMEMLIMIT in the environment takes precedence and is only reported. A
// containerLimit of zero or less leaves the limit unset; a ratio outside
// (0, 1] falls back to DefaultMemoryRatio.
//
// Call this early in main() before significant allocations.
func Configure(containerLimit int64, ratio float64) ConfigResult {
	result := ConfigResult{Source: "none"}

	if goMemLimitEnv := os.Getenv("GOMEMLIMIT"); goMemLimitEnv != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = limit
			metrics.GoMemLimit.Set(float64(limit))
		}
		logging.Info("GOMEMLIMIT set via environment: %s", goMemLimitEnv)
		return result
	}

	if containerLimit <= 0 {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return result
	}

	if ratio <= 0 || ratio > 1.0 {
		logging.Warn("Memory ratio %.2f out of range (0.0-1.0), using default %.2f", ratio, DefaultMemoryRatio)
		ratio = DefaultMemoryRatio
	}

	goMemLimit := int64(float64(containerLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)
	metrics.GoMemLimit.Set(float64(goMemLimit))

	result.Configured = true
	result.Source = "MEMORY_LIMIT"
	result.ContainerLimit = containerLimit
	result.GoMemLimit = goMemLimit
	result.Ratio = ratio

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
		FormatBytes(goMemLimit),
		ratio*100,
		FormatBytes(containerLimit),
	)

	return result
}

// FormatBytes formats bytes into a human-readable string
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}

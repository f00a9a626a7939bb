/*
Package filesystem provides resilient filesystem operations for reading source
images and writing thumbnails.

# Purpose

Source images frequently live on NFS mounts. This package wraps os.Stat,
os.Open and os.ReadFile with retry logic for ESTALE (stale file handle)
errors, and provides the writability probe and permission fix used before a
thumbnail is saved.

# Usage

	import "thumbnailer/internal/filesystem"

	// Stat a file with automatic NFS retry
	info, err := filesystem.StatWithRetry("/nfs/mount/file.jpg", filesystem.DefaultRetryConfig())

	// Read a whole file with automatic NFS retry
	data, err := filesystem.ReadFileWithRetry("/nfs/mount/file.jpg", filesystem.DefaultRetryConfig())

	// Make sure a thumbnail can be written
	if err := filesystem.CheckWritable(dir); err != nil {
	    err = filesystem.CorrectPermissions(dir)
	}

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only NFS stale file handle errors (ESTALE) trigger retries. All other errors
fail immediately without retry attempts.

# Metrics

Operations are reported through an [Observer] installed with [SetObserver].
The metrics package provides the Prometheus implementation; without one,
recording is skipped. Paths are labeled with a volume name via
[VolumeResolver] ("media", "cache" or "unknown").
*/
package filesystem

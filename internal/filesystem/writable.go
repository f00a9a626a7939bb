package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"thumbnailer/internal/logging"
)

// writeTestName is the probe file created by CheckWritable.
const writeTestName = ".write-test"

// CheckWritable verifies that files can be created in dir by writing and
// removing a probe file.
func CheckWritable(dir string) error {
	start := time.Now()

	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	testFile := filepath.Join(dir, writeTestName)
	err = os.WriteFile(testFile, []byte("test"), 0o644)
	if obs := observe(); obs != nil {
		obs.ObserveOperation(defaultResolver.Resolve(dir), "write", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return err
	}

	if err := os.Remove(testFile); err != nil {
		// Write access was still confirmed
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

// CorrectPermissions makes dir world-writable and then re-checks it.
func CorrectPermissions(dir string) error {
	start := time.Now()
	err := os.Chmod(dir, 0o777) //nolint:gosec // opt-in via THUMB_CORRECT_PERMISSIONS
	if obs := observe(); obs != nil {
		obs.ObserveOperation(defaultResolver.Resolve(dir), "chmod", time.Since(start).Seconds(), err)
	}
	if err != nil {
		return fmt.Errorf("could not correct permissions on %s: %w", dir, err)
	}

	logging.Info("Corrected permissions on %s", dir)
	return CheckWritable(dir)
}

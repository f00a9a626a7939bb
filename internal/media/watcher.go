package media

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"thumbnailer/internal/logging"
	"thumbnailer/internal/metrics"

	"github.com/fsnotify/fsnotify"
)

// Watcher removes cached thumbnails when their source changes. Stale
// entries are never served since the cache key carries the source mtime;
// the watcher only reclaims their disk space.
type Watcher struct {
	gen      *ThumbnailGenerator
	mediaDir string
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher watches every non-hidden directory under mediaDir.
func NewWatcher(gen *ThumbnailGenerator, mediaDir string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		metrics.WatcherErrors.Inc()
		return nil, err
	}

	w := &Watcher{
		gen:      gen,
		mediaDir: mediaDir,
		watcher:  watcher,
		done:     make(chan struct{}),
	}

	watchCount := w.addDirectories(mediaDir)
	logging.Debug("Media watcher started, watching %d directories", watchCount)
	metrics.WatcherWatchedDirectories.Set(float64(watchCount))

	return w, nil
}

// Start begins processing events in the background.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.processEvents()
	}()
}

// Stop closes the watcher and waits for the event loop to exit. It is
// safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.watcher.Close(); err != nil {
			logging.Error("failed to close media watcher: %v", err)
		}
		w.wg.Wait()
	})
}

// addDirectories adds root and every directory below it to the watcher
func (w *Watcher) addDirectories(root string) int {
	watchCount := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.Inc()
		} else {
			watchCount++
		}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk media directory for watcher: %v", err)
		metrics.WatcherErrors.Inc()
	}
	return watchCount
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.Inc()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			added := w.addDirectories(event.Name)
			metrics.WatcherWatchedDirectories.Add(float64(added))
			logging.Debug("Added new directory to watcher: %s", event.Name)
			return
		}
	}

	if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.gen.Invalidate(event.Name)
	}
}

package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/filesystem"
	"thumbnailer/internal/geometry"
	"thumbnailer/internal/logging"
	"thumbnailer/internal/metrics"
	"thumbnailer/internal/thumbnail"
	"thumbnailer/internal/workers"
)

// Config configures a ThumbnailGenerator.
type Config struct {
	MediaDir      string
	CacheDir      string
	CacheEnabled  bool
	DefaultSize   int
	MaxSize       int
	DefaultFormat backend.Format
	Options       thumbnail.Options
}

// ThumbnailGenerator produces thumbnails of images under the media
// directory and caches them on disk.
type ThumbnailGenerator struct {
	cfg     Config
	engine  backend.Backend
	limiter *workers.Limiter
	retry   filesystem.RetryConfig

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewThumbnailGenerator creates a generator running every session on
// engine, at most limiter.Size() at a time.
func NewThumbnailGenerator(engine backend.Backend, limiter *workers.Limiter, cfg Config) *ThumbnailGenerator {
	if abs, err := filepath.Abs(cfg.MediaDir); err == nil {
		cfg.MediaDir = abs
	}
	if cfg.CacheEnabled {
		logging.Debug("ThumbnailGenerator: cache enabled, cache dir: %s", cfg.CacheDir)
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			logging.Warn("ThumbnailGenerator: failed to create cache dir: %v", err)
			cfg.CacheEnabled = false
		}
	} else {
		logging.Debug("ThumbnailGenerator: cache disabled")
	}
	return &ThumbnailGenerator{
		cfg:     cfg,
		engine:  engine,
		limiter: limiter,
		retry:   filesystem.DefaultRetryConfig(),
		locks:   make(map[string]*keyLock),
	}
}

// IsEnabled reports whether generated thumbnails are cached.
func (t *ThumbnailGenerator) IsEnabled() bool {
	return t.cfg.CacheEnabled
}

// Engine returns the engine every session runs on.
func (t *ThumbnailGenerator) Engine() backend.Backend {
	return t.engine
}

// GetThumbnail returns the thumbnail for req, from the cache when an entry
// for the same source version and parameters exists.
func (t *ThumbnailGenerator) GetThumbnail(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result, err := t.getThumbnail(ctx, &req)

	mode := string(req.Mode)
	if mode == "" {
		mode = string(ModeFit)
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(mode, statusLabel(err)).Inc()
	if err == nil && !result.Cached {
		metrics.ThumbnailGenerationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
	return result, err
}

func (t *ThumbnailGenerator) getThumbnail(ctx context.Context, req *Request) (*Result, error) {
	if err := req.normalize(t.cfg.DefaultSize, t.cfg.MaxSize); err != nil {
		return nil, err
	}

	fullPath, rel, err := t.resolve(req.Path)
	if err != nil {
		return nil, err
	}
	req.Path = rel

	info, err := t.statSource(fullPath)
	if err != nil {
		return nil, err
	}

	source, err := t.sourceFormat(fullPath)
	if err != nil {
		return nil, err
	}
	format := t.outputFormat(req.Format, source)

	result := &Result{Format: format, SourceModTime: info.ModTime()}
	cachePath := t.cachePath(rel, info, *req, format)

	if t.cfg.CacheEnabled {
		if data, err := os.ReadFile(cachePath); err == nil {
			logging.Debug("Thumbnail cache hit: %s", rel)
			metrics.ThumbnailCacheHits.Inc()
			result.Data, result.Cached = data, true
			return result, nil
		}

		unlock := t.lock(cachePath)
		defer unlock()

		// Another request may have generated it while we waited.
		if data, err := os.ReadFile(cachePath); err == nil {
			metrics.ThumbnailCacheHits.Inc()
			result.Data, result.Cached = data, true
			return result, nil
		}
		metrics.ThumbnailCacheMisses.Inc()
	}

	logging.Debug("Thumbnail generating: %s (mode: %s, format: %s)", rel, req.Mode, format)

	var buf bytes.Buffer
	err = t.limiter.Do(ctx, func() error {
		return t.render(fullPath, *req, format, &buf)
	})
	if err != nil {
		return nil, err
	}
	result.Data = buf.Bytes()

	if t.cfg.CacheEnabled {
		if err := t.writeCache(cachePath, result.Data); err != nil {
			logging.Warn("Failed to cache thumbnail %s: %v", cachePath, err)
		} else {
			logging.Debug("Thumbnail cached: %s", cachePath)
		}
	}

	return result, nil
}

// exceedsLimit reports whether scaled grows past maxSize on an axis. Sources
// already larger than maxSize may keep their size.
func exceedsLimit(scaled, source geometry.Dimensions, maxSize int) bool {
	return (scaled.Width > maxSize && scaled.Width > source.Width) ||
		(scaled.Height > maxSize && scaled.Height > source.Height)
}

// render runs one session over the source and encodes it into buf.
func (t *ThumbnailGenerator) render(fullPath string, req Request, format backend.Format, buf *bytes.Buffer) error {
	th, err := thumbnail.NewWithBackend(t.engine, t.cfg.Options)
	if err != nil {
		return err
	}
	defer th.Close()

	if err := th.ReadImage(fullPath); err != nil {
		return err
	}

	switch spec, ok := req.resizeSpec(); {
	case ok:
		scaled := th.ScaledDimensions(spec)
		if exceedsLimit(scaled, th.Dimensions(), t.cfg.MaxSize) {
			return fmt.Errorf("%w: %s scales %s to %s, above %d", ErrInvalidRequest,
				spec.Kind, th.Dimensions(), scaled, t.cfg.MaxSize)
		}
		err = th.ResizeSpec(spec)
	case req.Mode == ModeCrop:
		err = th.CropImage(req.Width, req.Height, req.X, req.Y)
	default:
		err = th.CropImageFromCenter(req.Width, req.Height)
	}
	if err != nil {
		return err
	}

	if req.Rotate != 0 {
		if err := th.RotateImageNDegrees(req.Rotate); err != nil {
			return err
		}
	}
	if req.Flip {
		if err := th.FlipImage(); err != nil {
			return err
		}
	}
	if req.Flop {
		if err := th.FlopImage(); err != nil {
			return err
		}
	}

	return th.Encode(buf, format)
}

// GetInfo decodes the source and reports its dimensions and format.
func (t *ThumbnailGenerator) GetInfo(ctx context.Context, path string) (*ImageInfo, error) {
	fullPath, rel, err := t.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := t.statSource(fullPath)
	if err != nil {
		return nil, err
	}
	if _, err := t.sourceFormat(fullPath); err != nil {
		return nil, err
	}

	result := &ImageInfo{
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Engine:  t.engine.Name(),
	}

	err = t.limiter.Do(ctx, func() error {
		th, err := thumbnail.NewWithBackend(t.engine, t.cfg.Options)
		if err != nil {
			return err
		}
		defer th.Close()

		if err := th.ReadImage(fullPath); err != nil {
			return err
		}
		result.Format = th.Format()
		result.Dimensions = th.Dimensions()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolve maps a request path to an absolute path inside the media
// directory and its cleaned relative form.
func (t *ThumbnailGenerator) resolve(path string) (string, string, error) {
	rel := strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+path)), "/")
	if rel == "" {
		return "", "", fmt.Errorf("%w: path is required", ErrInvalidPath)
	}

	fullPath := filepath.Join(t.cfg.MediaDir, filepath.FromSlash(rel))
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	absMediaDir, err := filepath.Abs(t.cfg.MediaDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidPath, err)
	}
	if absPath != absMediaDir && !strings.HasPrefix(absPath, absMediaDir+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%w: %s is outside the media directory", ErrInvalidPath, path)
	}

	// Symlinks may still point elsewhere.
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		if mediaResolved, err := filepath.EvalSymlinks(absMediaDir); err == nil &&
			!strings.HasPrefix(resolved, mediaResolved+string(filepath.Separator)) {
			return "", "", fmt.Errorf("%w: %s resolves outside the media directory", ErrInvalidPath, path)
		}
	}

	return absPath, rel, nil
}

func (t *ThumbnailGenerator) statSource(fullPath string) (os.FileInfo, error) {
	info, err := filesystem.StatWithRetry(fullPath, t.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filepath.Base(fullPath))
		}
		return nil, fmt.Errorf("failed to access source: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidPath, filepath.Base(fullPath))
	}
	return info, nil
}

// sourceFormat sniffs the source header and checks the engine can read it.
func (t *ThumbnailGenerator) sourceFormat(fullPath string) (backend.Format, error) {
	file, err := filesystem.OpenWithRetry(fullPath, t.retry)
	if err != nil {
		return backend.FormatUnknown, fmt.Errorf("failed to open source: %w", err)
	}
	defer file.Close()

	format, err := backend.DetectReader(file)
	if err != nil {
		return backend.FormatUnknown, fmt.Errorf("failed to read source: %w", err)
	}
	if format == backend.FormatUnknown {
		return format, fmt.Errorf("%w: %s is not a recognized image", ErrUnsupported, filepath.Base(fullPath))
	}
	if !t.engine.SupportedFormats().CanRead(format) {
		return format, fmt.Errorf("%w: %s cannot read %s", ErrUnsupported, t.engine.Name(), format)
	}
	return format, nil
}

// outputFormat picks the requested format, then the configured default,
// then the source format. Formats the engine cannot write become JPEG.
func (t *ThumbnailGenerator) outputFormat(requested, source backend.Format) backend.Format {
	format := requested
	if format == backend.FormatUnknown {
		format = t.cfg.DefaultFormat
	}
	if format == backend.FormatUnknown {
		format = source
	}
	if !t.engine.SupportedFormats().CanWrite(format) {
		return backend.FormatJPEG
	}
	return format
}

// sourceKey is the cache file prefix shared by every thumbnail of rel.
func sourceKey(rel string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(rel)))
}

// cachePath names the entry for one source version and parameter set:
// md5(path)_md5(mtime|size|params).format
func (t *ThumbnailGenerator) cachePath(rel string, info os.FileInfo, req Request, format backend.Format) string {
	version := fmt.Sprintf("%d|%d|%s", info.ModTime().UnixNano(), info.Size(), req.params(format))
	name := fmt.Sprintf("%s_%x.%s", sourceKey(rel), md5.Sum([]byte(version)), format)
	return filepath.Join(t.cfg.CacheDir, name)
}

// writeCache writes data under path through a temp file so readers never
// see a partial thumbnail.
func (t *ThumbnailGenerator) writeCache(path string, data []byte) error {
	tmp, err := os.CreateTemp(t.cfg.CacheDir, ".thumb-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// lock serializes generation of one cache entry.
func (t *ThumbnailGenerator) lock(key string) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &keyLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}

// Invalidate removes every cached thumbnail of the source at fullPath and
// returns how many were removed.
func (t *ThumbnailGenerator) Invalidate(fullPath string) int {
	if !t.cfg.CacheEnabled {
		return 0
	}

	rel, err := filepath.Rel(t.cfg.MediaDir, fullPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return 0
	}

	matches, err := filepath.Glob(filepath.Join(t.cfg.CacheDir, sourceKey(filepath.ToSlash(rel))+"_*"))
	if err != nil {
		return 0
	}

	removed := 0
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			logging.Warn("Failed to remove cached thumbnail %s: %v", match, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		metrics.CacheInvalidationsTotal.Add(float64(removed))
		logging.Debug("Invalidated %d cached thumbnails of %s", removed, rel)
	}
	return removed
}

// GetStats implements metrics.StatsProvider.
func (t *ThumbnailGenerator) GetStats() metrics.Stats {
	var stats metrics.Stats
	if !t.cfg.CacheEnabled {
		return stats
	}

	entries, err := os.ReadDir(t.cfg.CacheDir)
	if err != nil {
		logging.Warn("Failed to read thumbnail cache dir: %v", err)
		return stats
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.CachedThumbnails++
		stats.CacheBytes += info.Size()
	}
	return stats
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "error_not_found"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidPath), errors.Is(err, thumbnail.ErrInvalidArgument):
		return "error_invalid"
	case errors.Is(err, ErrUnsupported):
		return "error_unsupported"
	default:
		return "error"
	}
}

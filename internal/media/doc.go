// Package media serves thumbnails of images under the media directory.
//
// [ThumbnailGenerator] validates a [Request], resolves its path inside the
// media directory, and runs one thumbnail session per miss on the
// configured engine, bounded by a workers.Limiter. Results are cached on
// disk as
//
//	CACHE_DIR/thumbnails/md5(path)_md5(mtime|size|params).format
//
// so a modified source never hits an old entry. [Watcher] follows the
// media directory with fsnotify and deletes the entries of changed or
// removed sources.
package media

// Package handlers provides the HTTP handlers of the thumbnail service.
//
// It includes handlers for:
//   - Thumbnails of images under the media directory
//   - Source image information
//   - The selected image engine and its formats
//   - Health, liveness and readiness probes
package handlers

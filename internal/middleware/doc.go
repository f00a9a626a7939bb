// Package middleware provides HTTP middleware for the thumbnailer service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path cardinality
//   - Response compression (gzip) for JSON and uncompressed image formats
package middleware

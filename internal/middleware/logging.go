package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"thumbnailer/internal/logging"
)

// CacheStatusHeader is the response header reporting whether a thumbnail
// was served from the cache.
const CacheStatusHeader = "X-Thumbnail-Cache"

// responseWriter records the status and body size for the access log.
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// LoggingConfig holds configuration for the logging middleware
type LoggingConfig struct {
	SkipPaths       []string
	LogCacheHits    bool
	LogHealthChecks bool
}

// DefaultLoggingConfig logs every request.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:       []string{},
		LogCacheHits:    true,
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/livez":   true,
	"/readyz":  true,
}

// Logger writes one access line per request in W3C extended format:
//
//	date time c-ip cs-method cs-uri-stem cs-uri-query sc-status sc-bytes time-taken cs(Content-Encoding) x-cache cs(User-Agent)
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			if !config.LogCacheHits && isCacheHit(rw) {
				return
			}
			logging.Println(newAccessEntry(r, rw, time.Since(start)).String())
		})
	}
}

// accessEntry is one access log line. Request fields are sanitized when
// the entry is built.
type accessEntry struct {
	at        time.Time
	client    string
	method    string
	path      string
	query     string
	status    int
	bytes     int64
	took      time.Duration
	encoding  string
	cache     string
	userAgent string
}

func newAccessEntry(r *http.Request, rw *responseWriter, took time.Duration) accessEntry {
	return accessEntry{
		at:        time.Now().UTC(),
		client:    sanitizeLogField(getClientIP(r)),
		method:    sanitizeLogField(r.Method),
		path:      sanitizeLogField(r.URL.Path),
		query:     sanitizeLogField(r.URL.RawQuery),
		status:    rw.statusCode,
		bytes:     rw.bytesWritten,
		took:      took,
		encoding:  rw.Header().Get("Content-Encoding"),
		cache:     rw.Header().Get(CacheStatusHeader),
		userAgent: sanitizeLogField(r.Header.Get("User-Agent")),
	}
}

func (e accessEntry) String() string {
	fields := []string{
		e.at.Format("2006-01-02"),
		e.at.Format("15:04:05"),
		orDash(e.client),
		e.method,
		e.path,
		orDash(e.query),
		strconv.Itoa(e.status),
		strconv.FormatInt(e.bytes, 10),
		strconv.FormatInt(e.took.Milliseconds(), 10),
		orDash(e.encoding),
		orDash(e.cache),
		quoteField(orDash(e.userAgent)),
	}
	return strings.Join(fields, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// quoteField wraps values containing separators in double quotes, doubling
// any embedded quotes.
func quoteField(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// sanitizeLogField keeps user-controlled values on one log line: newlines
// become spaces, other control characters except tab are dropped.
func sanitizeLogField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, prefix := range config.SkipPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return !config.LogHealthChecks && healthCheckPaths[path]
}

func isCacheHit(rw *responseWriter) bool {
	return strings.EqualFold(rw.Header().Get(CacheStatusHeader), "HIT")
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/filesystem"
	"thumbnailer/internal/logging"
	"thumbnailer/internal/memory"
	"thumbnailer/internal/thumbnail"
	"thumbnailer/internal/workers"

	"github.com/gorilla/mux"
	"github.com/lucasb-eyer/go-colorful"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Default limits for requested thumbnail sizes
const (
	defaultThumbnailSize = 200
	defaultMaxSize       = 2048
	maxWorkers           = 16
)

// Config holds all application configuration
type Config struct {
	MediaDir        string
	CacheDir        string
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	LogCacheHits    bool
	LogHealthChecks bool

	// Thumbnail service
	Workers            int
	DefaultSize        int
	MaxSize            int
	DefaultFormat      backend.Format
	CacheStatsInterval time.Duration

	// Memory
	MemoryLimit int64
	MemoryRatio float64

	// Thumbnail session options shared by every request
	Thumbnail thumbnail.Options

	// Derived paths
	ThumbnailDir string

	// Feature flags based on directory availability
	CacheEnabled bool
}

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	mediaDir := getEnv("MEDIA_DIR", "/media")
	cacheDir := getEnv("CACHE_DIR", "/cache")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	logCacheHits := getEnvBool("LOG_CACHE_HITS", true)
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", true)

	logging.Info("  MEDIA_DIR:           %s", mediaDir)
	logging.Info("  CACHE_DIR:           %s", cacheDir)
	logging.Info("  PORT:                %s", port)
	logging.Info("  METRICS_PORT:        %s", metricsPort)
	logging.Info("  METRICS_ENABLED:     %v", metricsEnabled)
	logging.Info("  LOG_CACHE_HITS:      %v", logCacheHits)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", logHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	config := &Config{
		Port:               port,
		MetricsPort:        metricsPort,
		MetricsEnabled:     metricsEnabled,
		LogCacheHits:       logCacheHits,
		LogHealthChecks:    logHealthChecks,
		Workers:            workers.ForCPU(maxWorkers),
		DefaultSize:        getEnvInt("THUMB_DEFAULT_SIZE", defaultThumbnailSize, 1, defaultMaxSize),
		MaxSize:            getEnvInt("THUMB_MAX_SIZE", defaultMaxSize, 1, 16384),
		DefaultFormat:      getEnvFormat("THUMB_DEFAULT_FORMAT"),
		CacheStatsInterval: getEnvDuration("CACHE_STATS_INTERVAL", time.Minute),
		MemoryLimit:        getEnvInt64("MEMORY_LIMIT", 0),
		MemoryRatio:        getEnvFloat("MEMORY_RATIO", memory.DefaultMemoryRatio),
		Thumbnail:          loadThumbnailOptions(),
	}

	if config.DefaultSize > config.MaxSize {
		logging.Warn("  THUMB_DEFAULT_SIZE %d exceeds THUMB_MAX_SIZE, using %d", config.DefaultSize, config.MaxSize)
		config.DefaultSize = config.MaxSize
	}

	logging.Info("  THUMBNAIL_WORKERS:   %d", config.Workers)
	logging.Info("  THUMB_DEFAULT_SIZE:  %d", config.DefaultSize)
	logging.Info("  THUMB_MAX_SIZE:      %d", config.MaxSize)
	logging.Info("  THUMB_DEFAULT_FORMAT: %s", formatOrSource(config.DefaultFormat))

	// Resolve paths
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	mediaDir, err = filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	logging.Info("  Media directory (absolute): %s", mediaDir)

	cacheDir, err = filepath.Abs(cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache directory path: %w", err)
	}
	logging.Info("  Cache directory (absolute): %s", cacheDir)

	// The media directory is required: it is the only source of images
	if err := ensureDirectory(mediaDir, "media"); err != nil {
		return nil, fmt.Errorf("media directory error: %w", err)
	}

	config.MediaDir = mediaDir
	config.CacheDir = cacheDir
	config.ThumbnailDir = filepath.Join(cacheDir, "thumbnails")

	// Without a cache every request generates its thumbnail from scratch
	config.CacheEnabled = setupOptionalDir(config.ThumbnailDir, "thumbnail cache")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Thumbnail cache: %s", enabledString(config.CacheEnabled))
	logging.Info("    Metrics:         %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// loadThumbnailOptions reads the THUMB_* session options. Invalid values
// keep their defaults.
func loadThumbnailOptions() thumbnail.Options {
	opts := thumbnail.DefaultOptions()

	opts.Engines = getEnvList("THUMB_ENGINES")
	if _, err := backend.Candidates(opts.Engines); err != nil {
		logging.Warn("  Invalid THUMB_ENGINES: %v, using default: %s", err, strings.Join(backend.DefaultPriority, ","))
		opts.Engines = nil
	}

	opts.ResizeUp = getEnvBool("THUMB_RESIZE_UP", opts.ResizeUp)
	opts.JPEGQuality = getEnvInt("THUMB_JPEG_QUALITY", opts.JPEGQuality, 0, 100)
	opts.PreserveAlpha = getEnvBool("THUMB_PRESERVE_ALPHA", opts.PreserveAlpha)
	opts.AlphaMaskColor = getEnvColor("THUMB_ALPHA_MASK_COLOR", opts.AlphaMaskColor)
	opts.PreserveTransparency = getEnvBool("THUMB_PRESERVE_TRANSPARENCY", opts.PreserveTransparency)
	opts.TransparencyMaskColor = getEnvColor("THUMB_TRANSPARENCY_MASK_COLOR", opts.TransparencyMaskColor)
	opts.CorrectPermissions = getEnvBool("THUMB_CORRECT_PERMISSIONS", opts.CorrectPermissions)

	engines := "default (" + strings.Join(backend.DefaultPriority, ",") + ")"
	if len(opts.Engines) > 0 {
		engines = strings.Join(opts.Engines, ",")
	}

	logging.Info("  THUMB_ENGINES:       %s", engines)
	logging.Info("  THUMB_RESIZE_UP:     %v", opts.ResizeUp)
	logging.Info("  THUMB_JPEG_QUALITY:  %d", opts.JPEGQuality)
	logging.Info("  THUMB_PRESERVE_ALPHA: %v (mask %s)", opts.PreserveAlpha, opts.AlphaMaskColor)
	logging.Info("  THUMB_PRESERVE_TRANSPARENCY: %v (mask %s)", opts.PreserveTransparency, opts.TransparencyMaskColor)
	logging.Info("  THUMB_CORRECT_PERMISSIONS: %v", opts.CorrectPermissions)

	return opts
}

func setupOptionalDir(path, name string) bool {
	logging.Debug("  Setting up %s directory: %s", name, path)

	if err := os.MkdirAll(path, 0o755); err != nil {
		logging.Warn("    Failed to create %s directory: %v", name, err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	if err := filesystem.CheckWritable(path); err != nil {
		logging.Warn("    %v", err)
		logging.Warn("    %s will be disabled", name)
		return false
	}

	logging.Debug("    [OK] %s directory ready", name)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func formatOrSource(f backend.Format) string {
	if f == backend.FormatUnknown {
		return "source"
	}
	return string(f)
}

// LogMemoryConfig logs the GOMEMLIMIT configuration
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if !result.Configured {
		logging.Info("  GOMEMLIMIT: not configured (set MEMORY_LIMIT to enable)")
		return
	}

	logging.Info("  Source:     %s", result.Source)
	logging.Info("  GOMEMLIMIT: %s", memory.FormatBytes(result.GoMemLimit))
	if result.ContainerLimit > 0 {
		logging.Info("  Container:  %s (ratio %.2f)", memory.FormatBytes(result.ContainerLimit), result.Ratio)
	}
}

// LogEngineInit logs the image engine probe results and the selected
// engine's capabilities.
func LogEngineInit(available map[string]error, selected backend.Backend) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("IMAGE ENGINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	names := make([]string, 0, len(available))
	for name := range available {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := available[name]; err != nil {
			logging.Info("  %-8s unavailable (%v)", name, err)
		} else {
			logging.Info("  %-8s available", name)
		}
	}

	if selected == nil {
		logging.Error("  No image engine available")
		return
	}

	formats := selected.SupportedFormats()
	logging.Info("")
	logging.Info("  [OK] Using %s", selected.Name())
	logging.Info("    Reads:  %s", strings.Join(formats.Names(backend.Read), ", "))
	logging.Info("    Writes: %s", strings.Join(formats.Names(backend.Write), ", "))
}

// LogThumbnailInit logs thumbnail service initialization
func LogThumbnailInit(config *Config) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("THUMBNAIL SERVICE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Concurrent sessions: %d", config.Workers)
	if config.CacheEnabled {
		logging.Info("  Cache directory:     %s", config.ThumbnailDir)
	} else {
		logging.Warn("  Cache disabled (cache directory not writable)")
		logging.Warn("  Every request will generate its thumbnail")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logCacheHits, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logCacheHits {
		logging.Info("    Cache hit logging: ON")
	} else {
		logging.Info("    Cache hit logging: OFF (set LOG_CACHE_HITS=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	// API routes are grouped by their second segment
	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Thumbnails:    http://0.0.0.0:%s/api/thumbnail/{path}", config.Port)
	logging.Info("    Engine:        http://0.0.0.0:%s/api/engine", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 _   _                     _                 _ _
| |_| |__  _   _ _ __ ___ | |__  _ __   __ _(_) | ___ _ __
| __| '_ \| | | | '_ ' _ \| '_ \| '_ \ / _' | | |/ _ \ '__|
| |_| | | | |_| | | | | | | |_) | | | | (_| | | |  __/ |
 \__|_| |_|\__,_|_| |_| |_|_.__/|_| |_|\__,_|_|_|\___|_|

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))
	logging.Info("  libvips loaded:  %v", backend.IsVipsAvailable())

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvInt parses an integer in [lo, hi].
func getEnvInt(key string, defaultValue, lo, hi int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < lo || parsed > hi {
		logging.Warn("Invalid value for %s: %q (want %d-%d), using default: %d", key, value, lo, hi, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		logging.Warn("Invalid value for %s: %q, using default: %.2f", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnvColor(key string, defaultValue thumbnail.RGB) thumbnail.RGB {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := ParseColor(value)
	if err != nil {
		logging.Warn("Invalid color for %s: %q, using default: %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFormat(key string) backend.Format {
	value := os.Getenv(key)
	if value == "" || strings.EqualFold(value, "source") {
		return backend.FormatUnknown
	}
	f, err := backend.ParseFormat(value)
	if err != nil {
		logging.Warn("Invalid format for %s: %v, keeping the source format", key, err)
		return backend.FormatUnknown
	}
	return f
}

// ParseColor parses a hex color such as "#ff8800", "ff8800" or "#f80".
func ParseColor(s string) (thumbnail.RGB, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return thumbnail.RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return thumbnail.RGB{R: r, G: g, B: b}, nil
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"thumbnailer/internal/backend"
	"thumbnailer/internal/filesystem"
	"thumbnailer/internal/handlers"
	"thumbnailer/internal/logging"
	"thumbnailer/internal/media"
	"thumbnailer/internal/memory"
	"thumbnailer/internal/metrics"
	"thumbnailer/internal/middleware"
	"thumbnailer/internal/startup"
	"thumbnailer/internal/thumbnail"
	"thumbnailer/internal/workers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server timeouts. Thumbnails are small, so writes get a bound too.
const (
	readTimeout         = 15 * time.Second
	writeTimeout        = 60 * time.Second
	idleTimeout         = 60 * time.Second
	metricsReadTimeout  = 5 * time.Second
	metricsWriteTimeout = 10 * time.Second
	shutdownTimeout     = 30 * time.Second
)

// services groups everything handleShutdown has to stop
type services struct {
	server        *http.Server
	metricsServer *http.Server
	watcher       *media.Watcher
	collector     *metrics.Collector
	memMonitor    *memory.Monitor
}

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogMemoryConfig(memory.Configure(config.MemoryLimit, config.MemoryRatio))
	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	probes, engine, err := probeEngines(config.Thumbnail.Engines)
	startup.LogEngineInit(probes, engine)
	if err != nil {
		startup.LogFatal("Image engine error: %v", err)
	}

	initMetrics(config, probes, engine)

	limiter := workers.NewLimiter(config.Workers, memMonitor)
	thumbGen := media.NewThumbnailGenerator(engine, limiter, media.Config{
		MediaDir:      config.MediaDir,
		CacheDir:      config.ThumbnailDir,
		CacheEnabled:  config.CacheEnabled,
		DefaultSize:   config.DefaultSize,
		MaxSize:       config.MaxSize,
		DefaultFormat: config.DefaultFormat,
		Options:       config.Thumbnail,
	})
	startup.LogThumbnailInit(config)

	svc := &services{memMonitor: memMonitor}

	if thumbGen.IsEnabled() {
		watcher, err := media.NewWatcher(thumbGen, config.MediaDir)
		if err != nil {
			logging.Warn("Media watcher disabled: %v", err)
		} else {
			watcher.Start()
			svc.watcher = watcher
		}
	}

	svc.collector = metrics.NewCollector(thumbGen, config.CacheStatsInterval)
	svc.collector.Start()

	h := handlers.New(thumbGen, probes, memMonitor, config)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogCacheHits, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogCacheHits = config.LogCacheHits
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = router
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)

	svc.server = &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	if config.MetricsEnabled {
		svc.metricsServer = newMetricsServer(config.MetricsPort)
		go func() {
			if err := svc.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		handleShutdown(svc)
		close(shutdownDone)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	if err := svc.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

// probeEngines checks every configured engine and selects the first
// available one in priority order.
func probeEngines(names []string) (map[string]error, backend.Backend, error) {
	cands, err := backend.Candidates(names)
	if err != nil {
		return nil, nil, err
	}

	probes := make(map[string]error, len(cands))
	for _, c := range cands {
		probes[c.Name()] = c.Available()
	}

	engine, err := backend.Select(cands)
	if err != nil {
		return probes, nil, err
	}
	return probes, engine, nil
}

func initMetrics(config *startup.Config, probes map[string]error, engine backend.Backend) {
	available := make(map[string]bool, len(probes))
	names := make([]string, 0, len(probes))
	for name, err := range probes {
		available[name] = err == nil
		names = append(names, name)
	}

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.SetEngineInfo(available, engine.Name())
	metrics.InitializeMetrics(names)

	thumbnail.SetObserver(metrics.NewThumbnailObserver())
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media": config.MediaDir,
		"cache": config.CacheDir,
	}))

	logging.Debug("Metrics initialized for engines: %s", strings.Join(names, ", "))
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health checks
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)

	// API
	r.HandleFunc("/api/thumbnail/{path:.*}", h.GetThumbnail).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/info/{path:.*}", h.GetInfo).Methods(http.MethodGet)
	r.HandleFunc("/api/engine", h.GetEngine).Methods(http.MethodGet)

	return r
}

func newMetricsServer(port string) *http.Server {
	serveMux := http.NewServeMux()
	serveMux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:         ":" + port,
		Handler:      serveMux,
		ReadTimeout:  metricsReadTimeout,
		WriteTimeout: metricsWriteTimeout,
		IdleTimeout:  idleTimeout,
	}
}

func handleShutdown(svc *services) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	shutdown(svc)
}

// shutdown stops the servers first so no new sessions start, then the
// background services, then libvips.
func shutdown(svc *services) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := svc.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if svc.metricsServer != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := svc.metricsServer.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	if svc.watcher != nil {
		startup.LogShutdownStep("Stopping media watcher")
		svc.watcher.Stop()
		startup.LogShutdownStepComplete("Media watcher stopped")
	}

	if svc.collector != nil {
		startup.LogShutdownStep("Stopping metrics collector")
		svc.collector.Stop()
		startup.LogShutdownStepComplete("Metrics collector stopped")
	}

	startup.LogShutdownStep("Stopping memory monitor")
	svc.memMonitor.Stop()
	startup.LogShutdownStepComplete("Memory monitor stopped")

	startup.LogShutdownStep("Shutting down libvips")
	backend.ShutdownVips()
	startup.LogShutdownStepComplete("libvips shut down")

	startup.LogShutdownComplete()
}

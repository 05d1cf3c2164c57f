package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/vitaldash/internal/adapters/http/api"
	"github.com/okian/vitaldash/internal/adapters/http/site"
	"github.com/okian/vitaldash/internal/adapters/http/web"
	"github.com/okian/vitaldash/internal/adapters/querycache"
	"github.com/okian/vitaldash/internal/adapters/repository"
	"github.com/okian/vitaldash/internal/adapters/upstream"
	service "github.com/okian/vitaldash/internal/app"
	"github.com/okian/vitaldash/internal/config"
	"github.com/okian/vitaldash/internal/domain/auth"
	"github.com/okian/vitaldash/pkg/logger"
	"github.com/okian/vitaldash/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	handler, svc, err := build(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "failed to build portal", logger.Error(err))
		os.Exit(1)
	}
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("api", cfg.APIBaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// build wires the portal from configuration. The returned service is not
// started.
func build(ctx context.Context, cfg *config.Config, log logger.Logger) (http.Handler, *service.Service, error) {
	metrics.Configure(metricsOptions(cfg)...)

	sessions, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}

	client := upstream.New(cfg.APIBaseURL,
		upstream.WithTimeout(cfg.APITimeout()),
		upstream.WithRetry(cfg.APIRetryCount, cfg.APIRetryWait()),
		upstream.WithLogger(log.Named("upstream")),
	)

	signer, err := auth.NewCookieSigner(cfg.SessionSecret, cfg.SessionTTL())
	if err != nil {
		_ = sessions.Close()
		return nil, nil, fmt.Errorf("cookie signer: %w", err)
	}
	if signer.Generated() {
		log.Warn(ctx, "session_secret not set; sessions will not survive a restart")
	}

	svc := service.New(client, sessions,
		service.WithLogger(log.Named("service")),
		service.WithCache(querycache.New(
			querycache.WithTTL(cfg.CacheTTL()),
			querycache.WithMaxEntries(cfg.CacheSize),
		)),
		service.WithPageFetchTimeout(cfg.PageFetchTimeout()),
		service.WithTokenRefreshWindow(cfg.TokenRefreshWindow()),
		service.WithJanitorInterval(cfg.JanitorInterval()),
		service.WithBackendName(cfg.SessionBackend),
		service.WithPrefetchWorkers(cfg.PrefetchWorkers),
		service.WithPrefetchQueueSize(cfg.PrefetchQueueSize),
	)

	pages, err := web.New(svc, signer,
		web.WithCookieName(cfg.SessionCookieName),
		web.WithCookieSecure(cfg.CookieSecure),
		web.WithSessionTTL(cfg.SessionTTL()),
		web.WithLogger(log.Named("web")),
	)
	if err != nil {
		_ = sessions.Close()
		return nil, nil, fmt.Errorf("web handler: %w", err)
	}

	mux := http.NewServeMux()
	site.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)
	pages.Register(mux)

	return mux, svc, nil
}

func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithMetricsEnabled(cfg.MetricsHTTP),
		metrics.WithRefreshInterval(cfg.MetricsRefresh()),
		metrics.WithEnvironment(cfg.Environment),
	}
}

// startSystemMetricsUpdater samples runtime metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes the session and cache gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats(ctx)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// Command facet runs the biometric capture service: detection loops,
// capture sessions, descriptor authentication, and the HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/facet/internal/adapters/http/api"
	"github.com/okian/facet/internal/adapters/http/swagger"
	service "github.com/okian/facet/internal/app"
	"github.com/okian/facet/internal/config"
	"github.com/okian/facet/pkg/logger"
	"github.com/okian/facet/pkg/metrics"
)

// HTTP server timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Keep the metrics endpoint scoped to our own collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load configuration", logger.Error(err))
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log level, using info",
			logger.String("level", cfg.LogLevel),
			logger.Error(err))
	}

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithSampleInterval(time.Duration(cfg.SampleIntervalMS)*time.Millisecond),
		service.WithDetectionThreshold(cfg.DetectionThreshold),
		service.WithMatchDistanceMax(cfg.MatchDistanceMax),
		service.WithDescriptorLength(cfg.DescriptorLength),
		service.WithAuthMaxAttempts(cfg.AuthMaxAttempts),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithInferenceLatencyRange(
			time.Duration(cfg.InferenceLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.InferenceLatencyMaxMS)*time.Millisecond,
		),
	)

	if err := svc.Start(ctx); err != nil {
		log.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	startSystemMetricsUpdater(ctx)
	startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", logger.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "http server failed", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "http server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "service stopped")
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is cancelled.
func startSystemMetricsUpdater(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(systemMetricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				updateSystemMetrics()
			}
		}
	}()
}

// startServiceMetricsUpdater refreshes service-level gauges until ctx is
// cancelled.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	go func() {
		ticker := time.NewTicker(serviceMetricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				updateServiceMetrics(svc)
			}
		}
	}()
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(float64(m.HeapAlloc))
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		pause := m.PauseNs[(m.NumGC+255)%256]
		metrics.RecordSystemGCPauseTime(float64(pause) / 1e6)
	}
}

// updateServiceMetrics refreshes service gauges; GetStats keeps the
// session gauge current as a side effect.
func updateServiceMetrics(svc *service.Service) {
	_ = svc.GetStats()
}

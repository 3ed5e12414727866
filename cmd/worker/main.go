package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/kirillkom/scan-resolver/internal/adapters/http"
	"github.com/kirillkom/scan-resolver/internal/bootstrap"
	"github.com/kirillkom/scan-resolver/internal/config"
	"github.com/kirillkom/scan-resolver/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logging.Install("scan-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Registry: registry, RequireQueue: true})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := newMetricsServer(cfg.WorkerMetricsPort, app)
	go func() {
		slog.Info("worker_metrics_listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSDetectionsSubject, "default_session", cfg.NATSDefaultSession)
	err = app.Queue.SubscribeDetections(ctx, newDetectionHandler(app.Scans, cfg.NATSDefaultSession))
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func newMetricsServer(port string, app *bootstrap.App) *http.Server {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", app.Metrics.Handler())
	r.Get("/healthz", httpadapter.HealthHandler(app.Resilience))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

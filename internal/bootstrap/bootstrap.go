package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/scan-resolver/internal/config"
	"github.com/kirillkom/scan-resolver/internal/core/domain"
	"github.com/kirillkom/scan-resolver/internal/core/gate"
	"github.com/kirillkom/scan-resolver/internal/core/ports"
	"github.com/kirillkom/scan-resolver/internal/core/usecase"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/dictionary"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/notify/lognotify"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/queue/nats"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/resilience"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/shardsource/httpfetch"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/scan-resolver/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Scans      *usecase.ScanUseCase
	Dictionary ports.Dictionary
	Queue      *nats.Queue
	Resilience *resilience.Executor
	Metrics    *metrics.ScanMetrics

	closeFn func()
}

// Options lets each binary share its own Prometheus registry with the
// scan metrics.
type Options struct {
	Registry *prometheus.Registry
	// RequireQueue fails startup when NATS_URL is empty.
	RequireQueue bool
}

// New wires the application. A ctx cancelled before or while connecting to
// NATS aborts startup and releases the connection.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	scanMetrics := metrics.NewScanMetrics("scan-resolver", registry)

	executor := resilience.NewExecutor(resilienceConfig(cfg, scanMetrics))

	source, err := newShardSource(cfg, executor)
	if err != nil {
		return nil, err
	}

	columns, err := dictionary.LoadColumns(cfg.DictColumnsFile)
	if err != nil {
		return nil, fmt.Errorf("load dictionary columns: %w", err)
	}
	resolver := dictionary.NewResolver(source, dictionary.Options{
		JANCategory:  cfg.DictJANCategory,
		GTINCategory: cfg.DictGTINCategory,
		Columns:      &columns,
		Observer:     scanMetrics,
	})

	var (
		queue    *nats.Queue
		notifier ports.Notifier = lognotify.New(slog.Default())
	)
	switch {
	case strings.TrimSpace(cfg.NATSURL) != "":
		queue, err = nats.New(cfg.NATSURL, nats.Options{
			DetectionsSubject:    cfg.NATSDetectionsSubject,
			NotificationsSubject: cfg.NATSNotificationsSubject,
			ResilienceExecutor:   executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		if err := ctx.Err(); err != nil {
			queue.Close()
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		notifier = queue
	case opts.RequireQueue:
		return nil, fmt.Errorf("NATS_URL is required")
	}

	scans := usecase.NewScanUseCase(resolver, usecase.ScanOptions{
		Gate: gate.Config{
			MinInterval:      cfg.GateMinInterval,
			SameCodeCooldown: cfg.GateSameCodeCooldown,
		},
		Notifier: observedNotifier{next: notifier, metrics: scanMetrics},
		Observer: scanMetrics,
	})

	slog.Info("bootstrap_ready",
		"dict_source", cfg.DictSource,
		"nats_enabled", queue != nil,
		"gate_min_interval_ms", cfg.GateMinInterval.Milliseconds(),
		"gate_same_code_cooldown_ms", cfg.GateSameCodeCooldown.Milliseconds(),
	)

	return &App{
		Config:     cfg,
		Scans:      scans,
		Dictionary: resolver,
		Queue:      queue,
		Resilience: executor,
		Metrics:    scanMetrics,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newShardSource(cfg config.Config, executor *resilience.Executor) (ports.ShardSource, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DictSource)) {
	case "http":
		return httpfetch.NewWithOptions(cfg.DictBaseURL, httpfetch.Options{
			Timeout:            cfg.DictFetchTimeout,
			ResilienceExecutor: executor,
		}), nil
	case "fs", "":
		storage, err := localfs.New(cfg.DictRoot)
		if err != nil {
			return nil, fmt.Errorf("init dictionary storage: %w", err)
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown DICT_SOURCE %q", cfg.DictSource)
	}
}

func resilienceConfig(cfg config.Config, scanMetrics *metrics.ScanMetrics) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	rc.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	rc.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	rc.BreakerFailureRatio = cfg.ResilienceBreakerFailureRatio
	rc.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	rc.Operations = map[string]resilience.Policy{
		"nats.publish": {MaxAttempts: cfg.NATSPublishMaxAttempts, InitialBackoff: 25 * time.Millisecond, MaxBackoff: 100 * time.Millisecond},
	}
	rc.OnStateChange = scanMetrics.ObserveBreakerState
	return rc
}

type observedNotifier struct {
	next    ports.Notifier
	metrics *metrics.ScanMetrics
}

func (n observedNotifier) Notify(ctx context.Context, sessionID string, note domain.Notification) error {
	err := n.next.Notify(ctx, sessionID, note)
	n.metrics.ObserveNotification(err)
	return err
}

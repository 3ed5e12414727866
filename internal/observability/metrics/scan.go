package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

// ScanMetrics observes the resolution pipeline: gate decisions, finished
// materials by dictionary status and shard fetch latency.
type ScanMetrics struct {
	service  string
	registry *prometheus.Registry

	gateDecisionsTotal *prometheus.CounterVec
	resolutionsTotal   *prometheus.CounterVec
	resolutionDuration *prometheus.HistogramVec
	shardFetchDuration *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

// NewScanMetrics registers into registry, or into a private one when nil.
func NewScanMetrics(service string, registry *prometheus.Registry) *ScanMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	gateDecisionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scan",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Detection gate decisions by outcome.",
		},
		[]string{"service", "decision"},
	)
	resolutionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scan",
			Subsystem: "pipeline",
			Name:      "resolutions_total",
			Help:      "Materials produced by dictionary status.",
		},
		[]string{"service", "dict_status"},
	)
	resolutionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scan",
			Subsystem: "pipeline",
			Name:      "resolution_duration_seconds",
			Help:      "Time from gate acceptance to finished material.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "dict_status"},
	)
	shardFetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scan",
			Subsystem: "dictionary",
			Name:      "shard_fetch_duration_seconds",
			Help:      "Dictionary shard fetch and scan duration by index and outcome.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "index", "status"},
	)
	notificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scan",
			Subsystem: "notify",
			Name:      "published_total",
			Help:      "Notification payloads handed to the sink by status.",
		},
		[]string{"service", "status"},
	)

	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "scan",
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(gateDecisionsTotal, resolutionsTotal, resolutionDuration, shardFetchDuration, notificationsTotal, breakerState)

	return &ScanMetrics{
		service:            service,
		registry:           registry,
		gateDecisionsTotal: gateDecisionsTotal,
		resolutionsTotal:   resolutionsTotal,
		resolutionDuration: resolutionDuration,
		shardFetchDuration: shardFetchDuration,
		notificationsTotal: notificationsTotal,
		breakerState:       breakerState,
	}
}

func (m *ScanMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ScanMetrics) ObserveGateDecision(decision string) {
	if decision == "" {
		decision = "unknown"
	}
	m.gateDecisionsTotal.WithLabelValues(m.service, decision).Inc()
}

func (m *ScanMetrics) ObserveResolution(status domain.DictStatus, duration time.Duration) {
	label := string(status)
	if label == "" {
		label = string(domain.DictStatusUnknown)
	}
	m.resolutionsTotal.WithLabelValues(m.service, label).Inc()
	m.resolutionDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())
}

func (m *ScanMetrics) ObserveShardFetch(index, status string, duration time.Duration) {
	m.shardFetchDuration.WithLabelValues(m.service, index, status).Observe(duration.Seconds())
}

func (m *ScanMetrics) ObserveNotification(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.notificationsTotal.WithLabelValues(m.service, status).Inc()
}

func (m *ScanMetrics) ObserveBreakerState(operation, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}

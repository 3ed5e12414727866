package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/scan-resolver/internal/bootstrap"
	"github.com/kirillkom/scan-resolver/internal/core/domain"
	"github.com/kirillkom/scan-resolver/internal/core/usecase"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/resilience"
	"github.com/kirillkom/scan-resolver/internal/observability/metrics"
)

var t0 = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

type dictStub struct{}

func (dictStub) LookupByJAN13(context.Context, string) domain.LookupOutcome {
	return domain.Hit(domain.DictionaryRecord{ProductName: "Widget"})
}

func (dictStub) LookupJANFromGTIN14(context.Context, string) domain.GTINLookup {
	return domain.GTINLookup{Status: domain.DictStatusNoMatch}
}

type sinkFake struct {
	ensured  []string
	handled  []string
	arrivals []time.Time
	deadline bool
	err      error
}

func (f *sinkFake) EnsureSession(_ context.Context, sessionID string) (*domain.ScanSession, error) {
	f.ensured = append(f.ensured, sessionID)
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ensure session", errors.New("session id is required"))
	}
	return &domain.ScanSession{ID: sessionID}, nil
}

func (f *sinkFake) HandleDetection(ctx context.Context, sessionID, raw string, arrivedAt time.Time) (*domain.ScanResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	_, f.deadline = ctx.Deadline()
	f.handled = append(f.handled, sessionID+":"+raw)
	f.arrivals = append(f.arrivals, arrivedAt)
	return &domain.ScanResult{Accepted: true}, nil
}

func TestDetectionHandlerUsesEnvelopeSession(t *testing.T) {
	sink := &sinkFake{}
	handle := newDetectionHandler(sink, "default")

	err := handle(context.Background(), domain.RawDetection{SessionID: "cart-7", Payload: "4901234567890", ArrivedAt: t0})
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(sink.handled) != 1 || sink.handled[0] != "cart-7:4901234567890" {
		t.Fatalf("unexpected detections %v", sink.handled)
	}
	if !sink.arrivals[0].Equal(t0) {
		t.Fatalf("arrival time not passed through: %v", sink.arrivals[0])
	}
}

func TestDetectionHandlerRoutesBarePayloadToDefaultSession(t *testing.T) {
	sink := &sinkFake{}
	handle := newDetectionHandler(sink, " default ")

	if err := handle(context.Background(), domain.RawDetection{Payload: "4901234567890", ArrivedAt: t0}); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(sink.ensured) != 1 || sink.ensured[0] != "default" || sink.handled[0] != "default:4901234567890" {
		t.Fatalf("expected default session, got ensured=%v handled=%v", sink.ensured, sink.handled)
	}
}

func TestDetectionHandlerRejectsBarePayloadWithoutDefault(t *testing.T) {
	sink := &sinkFake{}
	handle := newDetectionHandler(sink, "")

	err := handle(context.Background(), domain.RawDetection{Payload: "4901234567890", ArrivedAt: t0})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(sink.handled) != 0 {
		t.Fatalf("detection must not reach the pipeline, got %v", sink.handled)
	}
}

func TestDetectionHandlerStartsSessionLazily(t *testing.T) {
	scans := usecase.NewScanUseCase(dictStub{}, usecase.ScanOptions{})
	handle := newDetectionHandler(scans, "default")
	ctx := context.Background()

	events := []domain.RawDetection{
		{Payload: "4901234567890", ArrivedAt: t0},
		{Payload: "4901234567891", ArrivedAt: t0.Add(time.Second)},
		{SessionID: "cart-7", Payload: "4901234567890", ArrivedAt: t0},
	}
	for _, det := range events {
		if err := handle(ctx, det); err != nil {
			t.Fatalf("handler error = %v", err)
		}
	}

	def, err := scans.GetSession(ctx, "default")
	if err != nil {
		t.Fatalf("GetSession(default) error = %v", err)
	}
	if len(def.Materials) != 2 || def.Materials[0].Raw != "4901234567891" {
		t.Fatalf("expected both bare detections resolved in default session, got %+v", def.Materials)
	}
	cart, err := scans.GetSession(ctx, "cart-7")
	if err != nil || len(cart.Materials) != 1 || cart.Materials[0].DictStatus != domain.DictStatusHit {
		t.Fatalf("expected cart-7 session with one hit, got %+v %v", cart, err)
	}
}

func TestDetectionHandlerReturnsPipelineError(t *testing.T) {
	sink := &sinkFake{err: errors.New("boom")}
	handle := newDetectionHandler(sink, "default")
	if err := handle(context.Background(), domain.RawDetection{SessionID: "s1", Payload: "x"}); err == nil {
		t.Fatalf("expected pipeline error to surface")
	}
}

func TestMetricsServerHealthReportsOpenBreaker(t *testing.T) {
	exec := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})
	_ = exec.Execute(context.Background(), "nats.publish", func(context.Context) error {
		return errors.New("no servers")
	}, nil)

	app := &bootstrap.App{Resilience: exec, Metrics: metrics.NewScanMetrics("worker-test", nil)}
	srv := newMetricsServer("0", app)

	res := httptest.NewRecorder()
	srv.Handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if body["status"] != "degraded" {
		t.Fatalf("expected degraded worker health, got %v", body)
	}
}

func TestDetectionHandlerAddsNoDeadline(t *testing.T) {
	sink := &sinkFake{}
	handle := newDetectionHandler(sink, "default")
	if err := handle(context.Background(), domain.RawDetection{SessionID: "s1", Payload: "4901234567890"}); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if sink.deadline {
		t.Fatalf("dictionary lookups must only be bounded by the transport")
	}
}

package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/scan-resolver/internal/config"
	"github.com/kirillkom/scan-resolver/internal/core/domain"
	"github.com/kirillkom/scan-resolver/internal/core/ports"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/resilience"
	"github.com/kirillkom/scan-resolver/internal/observability/metrics"
)

const (
	serviceName     = "api"
	maxRequestBytes = 64 << 10
)

// BreakerReporter exposes circuit breaker states for /healthz.
type BreakerReporter interface {
	States() map[string]resilience.BreakerStatus
}

type RouterOptions struct {
	Metrics  *metrics.HTTPServerMetrics
	Breakers BreakerReporter
}

type Router struct {
	scans    ports.ScanService
	lookup   ports.CodeLookup
	cfg      config.Config
	metrics  *metrics.HTTPServerMetrics
	breakers BreakerReporter
}

func NewRouter(scans ports.ScanService, lookup ports.CodeLookup, cfg config.Config, opts RouterOptions) *Router {
	return &Router{
		scans:    scans,
		lookup:   lookup,
		cfg:      cfg,
		metrics:  opts.Metrics,
		breakers: opts.Breakers,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)

	r.Get("/healthz", HealthHandler(rt.breakers))
	if rt.metrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		v1.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureMax)
		})

		v1.Post("/sessions", rt.startSession)
		v1.Get("/sessions/{sessionID}", rt.getSession)
		v1.Delete("/sessions/{sessionID}", rt.endSession)
		v1.Post("/sessions/{sessionID}/detections", rt.postDetection)
		v1.Get("/lookup", rt.lookupCode)
	})

	var handler http.Handler = r
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return handler
}

// HealthHandler reports "degraded" while any circuit breaker is open. A nil
// reporter always yields "ok".
func HealthHandler(breakers BreakerReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{"status": "ok"}
		if breakers != nil {
			states := breakers.States()
			for _, status := range states {
				if status.State == "open" {
					resp["status"] = "degraded"
					break
				}
			}
			resp["breakers"] = states
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type startSessionRequest struct {
	SessionID string `json:"session_id" validate:"omitempty,max=128,printascii"`
}

func (rt *Router) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := rt.scans.StartSession(r.Context(), strings.TrimSpace(req.SessionID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.scans.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (rt *Router) endSession(w http.ResponseWriter, r *http.Request) {
	if err := rt.scans.EndSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type detectionRequest struct {
	Payload   string     `json:"payload" validate:"required,max=512"`
	ArrivedAt *time.Time `json:"arrived_at"`
}

func (rt *Router) postDetection(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	var arrivedAt time.Time
	if req.ArrivedAt != nil {
		arrivedAt = *req.ArrivedAt
	}
	result, err := rt.scans.HandleDetection(r.Context(), chi.URLParam(r, "sessionID"), req.Payload, arrivedAt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordDetection(serviceName, result.Accepted)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) lookupCode(w http.ResponseWriter, r *http.Request) {
	material, err := rt.lookup.Lookup(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, material)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return nil
}

// decodeOptionalJSON treats an empty body as the zero request.
func decodeOptionalJSON(r *http.Request, dst any) error {
	err := decodeJSON(r, dst)
	if err != nil && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

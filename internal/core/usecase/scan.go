package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
	"github.com/kirillkom/scan-resolver/internal/core/gate"
	"github.com/kirillkom/scan-resolver/internal/core/ports"
)

// liveSession pairs a session with the gate that filters its decoder stream.
// mu serializes detections so each one is resolved to completion before the
// next is gated.
type liveSession struct {
	mu      sync.Mutex
	gate    *gate.Gate
	session domain.ScanSession
}

type ScanUseCase struct {
	builder  *MaterialBuilder
	notifier ports.Notifier
	observer ports.ResolutionObserver
	gateCfg  gate.Config
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

type ScanOptions struct {
	Gate     gate.Config
	Notifier ports.Notifier
	Observer ports.ResolutionObserver
	Now      func() time.Time
	NewID    func() string
}

func NewScanUseCase(dict ports.Dictionary, opts ScanOptions) *ScanUseCase {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &ScanUseCase{
		builder:  NewMaterialBuilder(dict, newID),
		notifier: opts.Notifier,
		observer: opts.Observer,
		gateCfg:  opts.Gate,
		now:      now,
		sessions: make(map[string]*liveSession),
	}
}

// StartSession opens a session with a fresh gate, replacing any session that
// already uses the same ID.
func (uc *ScanUseCase) StartSession(_ context.Context, sessionID string) (*domain.ScanSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	live := uc.newLiveSession(sessionID)

	uc.mu.Lock()
	_, replaced := uc.sessions[sessionID]
	uc.sessions[sessionID] = live
	uc.mu.Unlock()

	slog.Info("scan_session_started", "session_id", sessionID, "replaced", replaced)
	return snapshot(live), nil
}

func (uc *ScanUseCase) newLiveSession(sessionID string) *liveSession {
	now := uc.now()
	return &liveSession{
		gate: gate.New(uc.gateCfg),
		session: domain.ScanSession{
			ID:        sessionID,
			StartedAt: now,
			UpdatedAt: now,
			Materials: []domain.Material{},
		},
	}
}

func (uc *ScanUseCase) EndSession(_ context.Context, sessionID string) error {
	uc.mu.Lock()
	live, ok := uc.sessions[sessionID]
	delete(uc.sessions, sessionID)
	uc.mu.Unlock()
	if !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "end session", errSession(sessionID))
	}

	live.mu.Lock()
	live.gate.Reset()
	count := len(live.session.Materials)
	live.mu.Unlock()

	slog.Info("scan_session_ended", "session_id", sessionID, "materials", count)
	return nil
}

func (uc *ScanUseCase) GetSession(_ context.Context, sessionID string) (*domain.ScanSession, error) {
	live, err := uc.lookupSession(sessionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "get session", err)
	}
	return snapshot(live), nil
}

// EnsureSession returns the live session, starting it on first use. Unlike
// StartSession it never generates an ID, so callers can keep feeding the same
// session by the ID they passed.
func (uc *ScanUseCase) EnsureSession(_ context.Context, sessionID string) (*domain.ScanSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ensure session", errEmptySessionID)
	}
	if live, err := uc.lookupSession(sessionID); err == nil {
		return snapshot(live), nil
	}

	uc.mu.Lock()
	live, ok := uc.sessions[sessionID]
	if !ok {
		live = uc.newLiveSession(sessionID)
		uc.sessions[sessionID] = live
	}
	uc.mu.Unlock()

	if !ok {
		slog.Info("scan_session_started", "session_id", sessionID, "replaced", false)
	}
	return snapshot(live), nil
}

// HandleDetection gates one decoder event and, when accepted, resolves it and
// prepends the resulting Material to the session.
func (uc *ScanUseCase) HandleDetection(ctx context.Context, sessionID, raw string, arrivedAt time.Time) (*domain.ScanResult, error) {
	live, err := uc.lookupSession(sessionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "handle detection", err)
	}
	if arrivedAt.IsZero() {
		arrivedAt = uc.now()
	}

	live.mu.Lock()
	defer live.mu.Unlock()

	decision := live.gate.Decide(raw, arrivedAt)
	if uc.observer != nil {
		uc.observer.ObserveGateDecision(string(decision))
	}
	if decision != gate.Accepted {
		slog.Debug("detection_rejected", "session_id", sessionID, "raw", raw, "reason", string(decision))
		return &domain.ScanResult{Accepted: false, Reason: string(decision)}, nil
	}

	start := time.Now()
	material := uc.builder.Build(ctx, raw, arrivedAt)
	if uc.observer != nil {
		uc.observer.ObserveResolution(material.DictStatus, time.Since(start))
	}
	notification := NotificationFor(material)

	live.session.Materials = append([]domain.Material{material}, live.session.Materials...)
	live.session.UpdatedAt = uc.now()

	logAttrs := []any{
		"session_id", sessionID,
		"material_id", material.ID,
		"raw", raw,
		"dict_status", string(material.DictStatus),
		"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if material.DictError != "" {
		logAttrs = append(logAttrs, "dict_error", material.DictError)
	}
	slog.Info("detection_resolved", logAttrs...)

	if uc.notifier != nil {
		if err := uc.notifier.Notify(ctx, sessionID, notification); err != nil {
			slog.Warn("notification_failed", "session_id", sessionID, "material_id", material.ID, "error", err)
		}
	}

	return &domain.ScanResult{
		Accepted:     true,
		Material:     &material,
		Notification: &notification,
	}, nil
}

// Lookup resolves a payload outside any session and without gating.
func (uc *ScanUseCase) Lookup(ctx context.Context, raw string) (*domain.Material, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "lookup", errEmptyCode)
	}
	material := uc.builder.Build(ctx, raw, uc.now())
	return &material, nil
}

func (uc *ScanUseCase) lookupSession(sessionID string) (*liveSession, error) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	live, ok := uc.sessions[sessionID]
	if !ok {
		return nil, errSession(sessionID)
	}
	return live, nil
}

func snapshot(live *liveSession) *domain.ScanSession {
	live.mu.Lock()
	defer live.mu.Unlock()
	out := live.session
	out.Materials = make([]domain.Material, len(live.session.Materials))
	copy(out.Materials, live.session.Materials)
	return &out
}

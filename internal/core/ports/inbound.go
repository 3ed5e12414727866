package ports

import (
	"context"
	"time"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

// ScanService is the inbound contract for scan sessions fed by a live decoder.
type ScanService interface {
	StartSession(ctx context.Context, sessionID string) (*domain.ScanSession, error)
	EndSession(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*domain.ScanSession, error)
	HandleDetection(ctx context.Context, sessionID, raw string, arrivedAt time.Time) (*domain.ScanResult, error)
}

// CodeLookup resolves a payload without gating or session bookkeeping.
type CodeLookup interface {
	Lookup(ctx context.Context, raw string) (*domain.Material, error)
}

package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

// Dictionary resolves normalized codes against the sharded lookup files.
// Implementations never return transport failures as errors; they are folded
// into the outcome.
type Dictionary interface {
	LookupByJAN13(ctx context.Context, jan13 string) domain.LookupOutcome
	LookupJANFromGTIN14(ctx context.Context, gtin14 string) domain.GTINLookup
}

// ShardSource fetches one dictionary shard by its relative path.
type ShardSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Notifier forwards user-facing notification payloads to the display side.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, n domain.Notification) error
}

// ResolutionObserver receives pipeline events for metrics.
type ResolutionObserver interface {
	ObserveGateDecision(decision string)
	ObserveResolution(status domain.DictStatus, duration time.Duration)
}

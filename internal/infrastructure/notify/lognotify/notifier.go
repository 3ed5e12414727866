// Package lognotify writes notification payloads to the structured log. It is
// the sink used when no message bus is configured.
package lognotify

import (
	"context"
	"log/slog"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

type Notifier struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, sessionID string, note domain.Notification) error {
	attrs := []any{
		"session_id", sessionID,
		"title", note.Title,
		"subtitle", note.Subtitle,
	}
	if note.Price != nil {
		attrs = append(attrs, "price", *note.Price)
	}
	n.logger.InfoContext(ctx, "notification", attrs...)
	return nil
}

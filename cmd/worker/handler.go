package main

import (
	"context"
	"strings"
	"time"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

type detectionSink interface {
	EnsureSession(ctx context.Context, sessionID string) (*domain.ScanSession, error)
	HandleDetection(ctx context.Context, sessionID, raw string, arrivedAt time.Time) (*domain.ScanResult, error)
}

// newDetectionHandler feeds queued detections into their session, starting it
// on first use. Detections without a session ID go to defaultSession.
func newDetectionHandler(scans detectionSink, defaultSession string) func(context.Context, domain.RawDetection) error {
	defaultSession = strings.TrimSpace(defaultSession)
	return func(ctx context.Context, det domain.RawDetection) error {
		sessionID := strings.TrimSpace(det.SessionID)
		if sessionID == "" {
			sessionID = defaultSession
		}
		session, err := scans.EnsureSession(ctx, sessionID)
		if err != nil {
			return err
		}
		_, err = scans.HandleDetection(ctx, session.ID, det.Payload, det.ArrivedAt)
		return err
	}
}

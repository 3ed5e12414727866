package nats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
)

func TestDecodeDetectionEnvelope(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	det, err := decodeDetection([]byte(`{"session_id":"dev-1","payload":"4901234567890","arrived_at":"2026-03-01T09:59:59Z"}`), received)
	if err != nil {
		t.Fatalf("decodeDetection() error = %v", err)
	}
	if det.SessionID != "dev-1" || det.Payload != "4901234567890" {
		t.Fatalf("unexpected detection %+v", det)
	}
	if !det.ArrivedAt.Equal(received.Add(-time.Second)) {
		t.Fatalf("expected decoder timestamp kept, got %v", det.ArrivedAt)
	}
}

func TestDecodeDetectionBarePayload(t *testing.T) {
	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	det, err := decodeDetection([]byte("(01)14901234567893"), received)
	if err != nil {
		t.Fatalf("decodeDetection() error = %v", err)
	}
	if det.Payload != "(01)14901234567893" || !det.ArrivedAt.Equal(received) {
		t.Fatalf("unexpected detection %+v", det)
	}
}

func TestDecodeDetectionRejectsEmpty(t *testing.T) {
	if _, err := decodeDetection([]byte(`{"session_id":"dev-1"}`), time.Now()); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := decodeDetection([]byte(`{bad`), time.Now()); err == nil {
		t.Fatalf("expected error for malformed json")
	}
}

func TestNotificationMessageShape(t *testing.T) {
	price := int64(1234)
	raw, err := json.Marshal(notificationMessage{
		SessionID:    "dev-1",
		Notification: domain.Notification{Title: "read OK", Price: &price, Subtitle: "Widget"},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	_ = json.Unmarshal(raw, &got)
	if got["session_id"] != "dev-1" || got["title"] != "read OK" || got["price"] != float64(1234) {
		t.Fatalf("unexpected message %s", raw)
	}
}

func TestClassifyPublishError(t *testing.T) {
	if c := classifyPublishError(nats.ErrTimeout); !c.Retryable || !c.RecordFailure {
		t.Fatalf("timeout must be retryable and recorded")
	}
	if c := classifyPublishError(nats.ErrMaxPayload); c.Retryable || c.RecordFailure {
		t.Fatalf("oversized payload is a caller error, got %+v", c)
	}
	if c := classifyPublishError(errors.New("boom")); c.Retryable || !c.RecordFailure {
		t.Fatalf("unknown errors are recorded but not retried, got %+v", c)
	}
	wrapped := wrapTemporaryIfNeeded(nats.ErrConnectionClosed)
	if !domain.IsKind(wrapped, domain.ErrTemporary) {
		t.Fatalf("expected temporary wrap, got %v", wrapped)
	}
}

func TestNotificationSubject(t *testing.T) {
	cases := map[string]string{
		"":          "scanner.notifications",
		"cart-7":    "scanner.notifications.cart-7",
		"ward.3 *a": "scanner.notifications.ward_3__a",
	}
	for sessionID, want := range cases {
		if got := notificationSubject("scanner.notifications", sessionID); got != want {
			t.Fatalf("notificationSubject(%q) = %q, want %q", sessionID, got, want)
		}
	}
}

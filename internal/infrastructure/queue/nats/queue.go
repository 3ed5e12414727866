package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/scan-resolver/internal/core/domain"
	"github.com/kirillkom/scan-resolver/internal/infrastructure/resilience"
)

// Queue carries decoder detections in and notification payloads out.
type Queue struct {
	conn                 *nats.Conn
	detectionsSubject    string
	notificationsSubject string
	executor             *resilience.Executor
}

type Options struct {
	DetectionsSubject    string
	NotificationsSubject string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("scan-resolver"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newQueue(conn, options), nil
}

func newQueue(conn *nats.Conn, options Options) *Queue {
	detections := options.DetectionsSubject
	if detections == "" {
		detections = "scanner.detections"
	}
	notifications := options.NotificationsSubject
	if notifications == "" {
		notifications = "scanner.notifications"
	}
	return &Queue{
		conn:                 conn,
		detectionsSubject:    detections,
		notificationsSubject: notifications,
		executor:             options.ResilienceExecutor,
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

type notificationMessage struct {
	SessionID string `json:"session_id"`
	domain.Notification
}

// Notify publishes on <notifications subject>.<session id> so display clients
// can subscribe to a single session.
func (q *Queue) Notify(ctx context.Context, sessionID string, n domain.Notification) error {
	payload, err := json.Marshal(notificationMessage{SessionID: sessionID, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	subject := notificationSubject(q.notificationsSubject, sessionID)

	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeDetections delivers decoded payloads one at a time in arrival
// order and blocks until ctx is done. A plain subscription is used instead of
// a queue group so one session's detections are never split across workers.
func (q *Queue) SubscribeDetections(ctx context.Context, handler func(context.Context, domain.RawDetection) error) error {
	sub, err := q.conn.Subscribe(q.detectionsSubject, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		det, err := decodeDetection(msg.Data, time.Now().UTC())
		if err != nil {
			slog.Warn("detection_decode_failed", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, det); err != nil {
			slog.Error("detection_handler_failed", "session_id", det.SessionID, "raw", det.Payload, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

// notificationSubject appends the session as one subject token. Characters
// NATS treats as separators or wildcards are replaced.
func notificationSubject(base, sessionID string) string {
	if sessionID == "" {
		return base
	}
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, sessionID)
	return base + "." + token
}

// decodeDetection accepts either a JSON envelope or a bare payload string.
// Missing arrival times are stamped with receivedAt.
func decodeDetection(data []byte, receivedAt time.Time) (domain.RawDetection, error) {
	var det domain.RawDetection
	if len(data) > 0 && data[0] == '{' {
		if err := json.Unmarshal(data, &det); err != nil {
			return domain.RawDetection{}, fmt.Errorf("decode detection: %w", err)
		}
	} else {
		det.Payload = string(data)
	}
	if det.Payload == "" {
		return domain.RawDetection{}, fmt.Errorf("decode detection: empty payload")
	}
	if det.ArrivedAt.IsZero() {
		det.ArrivedAt = receivedAt
	}
	return det, nil
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"facility-maintenance-backend/config"
	"facility-maintenance-backend/internal/model"
)

const natsStreamMaxAge = 7 * 24 * time.Hour

// NATSSink publishes notification requests to a JetStream work queue consumed by
// an external delivery service.
type NATSSink struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
}

// NewNATSSink connects to NATS and makes sure the stream exists.
func NewNATSSink(cfg config.NATSConfig) (*NATSSink, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("facilityd"))
	if err != nil {
		return nil, fmt.Errorf("connect notification nats: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init for notifications: %w", err)
	}
	if err := ensureStream(js, cfg.Stream, cfg.Subject); err != nil {
		nc.Close()
		return nil, err
	}
	return &NATSSink{nc: nc, js: js, subject: cfg.Subject}, nil
}

func ensureStream(js nats.JetStreamContext, name, subject string) error {
	if _, err := js.StreamInfo(name); err == nil {
		return nil
	} else if err != nats.ErrStreamNotFound && !strings.Contains(strings.ToLower(err.Error()), "stream not found") {
		return fmt.Errorf("stream info %q: %w", name, err)
	}

	_, err := js.AddStream(&nats.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Retention: nats.WorkQueuePolicy,
		Storage:   nats.FileStorage,
		MaxAge:    natsStreamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("create stream %q: %w", name, err)
	}
	return nil
}

// Enqueue publishes one request. The request id doubles as the JetStream
// de-duplication id.
func (s *NATSSink) Enqueue(ctx context.Context, n model.NotificationRequest) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", n.ID, err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = body
	msg.Header.Set(nats.MsgIdHdr, n.ID)
	if _, err := s.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		return fmt.Errorf("%w: publish notification %s: %v", ErrTransientFailure, n.ID, err)
	}
	return nil
}

// Close closes the NATS connection.
func (s *NATSSink) Close() error {
	if s == nil || s.nc == nil {
		return nil
	}
	s.nc.Close()
	return nil
}

// Package kafka publishes security events to the platform event bus.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// SecurityEvent is the envelope written to the security topic. Downstream
// consumers (fraud detection, alerting) key on Action and Status.
type SecurityEvent struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Action     string          `json:"action"`
	Status     string          `json:"status"`
	IdentityID *string         `json:"identity_id,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	Time       time.Time       `json:"time"`
}

// Producer writes security events to Kafka.
type Producer struct {
	writer *segmentio.Writer
	logger *zap.Logger
}

// NewProducer creates a Kafka producer for the given brokers and topic.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &segmentio.Writer{
		Addr:         segmentio.TCP(brokers...),
		Topic:        topic,
		Balancer:     &segmentio.LeastBytes{},
		RequiredAcks: segmentio.RequireAll,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Producer{writer: writer, logger: logger}
}

// Publish writes one event keyed by identity (when present) so per-identity
// ordering is preserved. Publish failures are the caller's to swallow; audit
// recording never blocks the request path on the bus.
func (p *Producer) Publish(ctx context.Context, event SecurityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal security event: %w", err)
	}
	var key []byte
	if event.IdentityID != nil {
		key = []byte(*event.IdentityID)
	}
	if err := p.writer.WriteMessages(ctx, segmentio.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("failed to write security event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Package publisher fans audit entries out to Kafka for the observability
// pipeline. The durable Postgres write remains the source of truth; this
// stream is advisory and publish failures are counted, not propagated.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"clinicore/internal/audit"
)

// Sender is the transport contract, satisfied by the platform Kafka producer.
type Sender interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Kafka publishes audit entries to a single topic, keyed by user so one
// principal's history stays in partition order.
type Kafka struct {
	sender Sender
	topic  string
}

func NewKafka(sender Sender, topic string) *Kafka {
	return &Kafka{sender: sender, topic: topic}
}

type wireEntry struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Action    string        `json:"action"`
	Payload   audit.Payload `json:"payload,omitempty"`
	CreatedAt string        `json:"created_at"`
}

func (k *Kafka) Publish(ctx context.Context, entry audit.Entry) error {
	value, err := json.Marshal(wireEntry{
		ID:        entry.ID.String(),
		UserID:    entry.UserID,
		Action:    entry.Action,
		Payload:   entry.Payload,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return k.sender.Publish(ctx, k.topic, []byte(entry.UserID), value)
}

// Package outbox implements the transactional outbox: domain events are
// written to an outbox_events collection in the same Mongo transaction as
// the state change they describe, and a background publisher relays them to
// Kafka. Delivery is at-least-once; consumers deduplicate by event ID.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warehouse-ops/fulfillment-service/pkg/events"
)

// DefaultMaxRetries bounds publish attempts per event. An event that fails
// this many times is left in the collection for the monitor to report.
const DefaultMaxRetries = 10

// OutboxEvent is one pending or published event row.
type OutboxEvent struct {
	ID            string          `bson:"_id" json:"id"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// NewOutboxEvent wraps an envelope for storage. The envelope is serialized
// at creation time so the publisher relays bytes without re-marshalling.
func NewOutboxEvent(aggregateID, aggregateType, topic string, envelope *events.Envelope) (*OutboxEvent, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope for outbox: %w", err)
	}
	return &OutboxEvent{
		ID:            uuid.NewString(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     envelope.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now(),
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

func (e *OutboxEvent) IsPublished() bool {
	return e.PublishedAt != nil
}

func (e *OutboxEvent) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < e.MaxRetries
}

// ToEnvelope deserializes the stored payload back into an envelope.
func (e *OutboxEvent) ToEnvelope() (*events.Envelope, error) {
	var envelope events.Envelope
	if err := json.Unmarshal(e.Payload, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal outbox payload: %w", err)
	}
	return &envelope, nil
}

// Package events defines the wire envelope for domain events published
// by the fulfillment service. Events are written to the transactional
// outbox first and relayed to Kafka by a background publisher.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event type names
const (
	TypeShipmentConfirmed = "fulfillment.shipment.confirmed"
	TypeShipmentRejected  = "fulfillment.shipment.rejected"
	TypeReturnApproved    = "fulfillment.return.approved"
	TypeReturnCancelled   = "fulfillment.return.cancelled"
	TypeReturnReceived    = "fulfillment.return.received"
	TypeReturnShipped     = "fulfillment.return.shipped"
	TypeReturnClosed      = "fulfillment.return.closed"
	TypeInventoryAdjusted = "fulfillment.inventory.adjusted"
	TypeInventoryDeleted  = "fulfillment.inventory.deleted"
	TypeInventorySync     = "fulfillment.inventory.sync"
)

// Envelope is the common wrapper for all published domain events.
type Envelope struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Subject       string          `json:"subject"`
	AccountID     string          `json:"accountId,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Time          time.Time       `json:"time"`
	Data          json.RawMessage `json:"data"`
}

// New creates an Envelope for the given event type and payload. The
// subject is the aggregate identifier the event concerns and becomes
// the Kafka partition key.
func New(eventType, source, subject string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &Envelope{
		ID:      uuid.NewString(),
		Type:    eventType,
		Source:  source,
		Subject: subject,
		Time:    time.Now().UTC(),
		Data:    data,
	}, nil
}

// WithAccount sets the owning account on the envelope.
func (e *Envelope) WithAccount(accountID string) *Envelope {
	e.AccountID = accountID
	return e
}

// WithCorrelationID sets the correlation ID on the envelope.
func (e *Envelope) WithCorrelationID(correlationID string) *Envelope {
	e.CorrelationID = correlationID
	return e
}

// DecodeData unmarshals the event payload into v.
func (e *Envelope) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode event data for %s: %w", e.Type, err)
	}
	return nil
}

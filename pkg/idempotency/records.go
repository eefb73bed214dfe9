package idempotency

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// KeyRecord is the stored state of one idempotency key: which request it
// belongs to, whether it is still executing, and the response once finished.
// Records expire via a TTL index on ExpiresAt.
type KeyRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Key       string             `bson:"key"`
	ServiceID string             `bson:"serviceId"`
	UserID    string             `bson:"userId,omitempty"`

	RequestPath        string `bson:"requestPath"`
	RequestMethod      string `bson:"requestMethod"`
	RequestFingerprint string `bson:"requestFingerprint"`

	// LockedAt is set while the original request is still executing.
	LockedAt *time.Time `bson:"lockedAt,omitempty"`

	ResponseCode    int               `bson:"responseCode,omitempty"`
	ResponseBody    []byte            `bson:"responseBody,omitempty"`
	ResponseHeaders map[string]string `bson:"responseHeaders,omitempty"`

	CreatedAt   time.Time  `bson:"createdAt"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
	ExpiresAt   time.Time  `bson:"expiresAt"`
}

// IsCompleted reports whether the original request finished and stored its
// response.
func (k *KeyRecord) IsCompleted() bool {
	return k.CompletedAt != nil
}

// IsLocked reports whether the original request is still in flight.
func (k *KeyRecord) IsLocked() bool {
	return k.LockedAt != nil && k.CompletedAt == nil
}

// MessageRecord marks a consumed Kafka message as handled. The unique index
// on (messageId, topic, consumerGroup) is what enforces exactly-once
// processing.
type MessageRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	MessageID     string             `bson:"messageId"`
	Topic         string             `bson:"topic"`
	EventType     string             `bson:"eventType"`
	ConsumerGroup string             `bson:"consumerGroup"`
	ServiceID     string             `bson:"serviceId"`
	CorrelationID string             `bson:"correlationId,omitempty"`

	ProcessedAt time.Time `bson:"processedAt"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

package idempotency

import (
	"context"
	"time"
)

// KeyRepository stores idempotency key records for the HTTP API. All
// operations that decide between "new request" and "replay" must be atomic.
type KeyRepository interface {
	// AcquireLock upserts the record for a key and marks it locked. It
	// returns the record in its state BEFORE this call took the lock, and
	// whether this call created it. When the returned record is already
	// completed the caller should replay the stored response; when it is
	// locked the original request is still in flight.
	AcquireLock(ctx context.Context, record *KeyRecord) (*KeyRecord, bool, error)

	// ReleaseLock clears the lock without completing the record, so a later
	// retry with the same key executes again. Used when the handler fails.
	ReleaseLock(ctx context.Context, recordID string) error

	// StoreResponse records the final response and marks the key completed.
	StoreResponse(ctx context.Context, recordID string, code int, body []byte, headers map[string]string) error

	// Get looks up a record by key within a service's namespace. Returns
	// ErrNotFound when absent.
	Get(ctx context.Context, key, serviceID string) (*KeyRecord, error)

	// Clean deletes records that expired before the given time. The TTL
	// index normally handles this; Clean exists for manual replays and
	// tests. Returns the number of records removed.
	Clean(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes creates the unique and TTL indexes. Called at startup.
	EnsureIndexes(ctx context.Context) error
}

// MessageRepository tracks which Kafka messages a consumer group has already
// handled.
type MessageRepository interface {
	// MarkProcessed records a message as handled. Returns
	// ErrMessageAlreadyProcessed when another consumer got there first.
	MarkProcessed(ctx context.Context, record *MessageRecord) error

	// IsProcessed reports whether a message was already handled by the
	// given consumer group.
	IsProcessed(ctx context.Context, messageID, topic, consumerGroup string) (bool, error)

	// Clean deletes records that expired before the given time. Returns the
	// number of records removed.
	Clean(ctx context.Context, before time.Time) (int64, error)

	// EnsureIndexes creates the unique and TTL indexes. Called at startup.
	EnsureIndexes(ctx context.Context) error
}

package outbox

import "context"

// Repository persists outbox events. Save and SaveAll run inside the same
// Mongo transaction as the state change that produced the events; the
// remaining methods serve the background publisher.
type Repository interface {
	Save(ctx context.Context, event *OutboxEvent) error
	SaveAll(ctx context.Context, events []*OutboxEvent) error

	// FindUnpublished returns events awaiting publication, oldest first,
	// skipping events whose retries are exhausted.
	FindUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkPublished stamps publishedAt on a delivered event.
	MarkPublished(ctx context.Context, eventID string) error

	// IncrementRetry bumps the retry counter and records the delivery error.
	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// DeletePublished removes events published more than olderThan seconds
	// ago. Called periodically by the publisher.
	DeletePublished(ctx context.Context, olderThan int64) error

	GetByID(ctx context.Context, eventID string) (*OutboxEvent, error)

	// FindByAggregateID returns every event recorded for one aggregate,
	// oldest first. Used for debugging delivery issues.
	FindByAggregateID(ctx context.Context, aggregateID string) ([]*OutboxEvent, error)
}

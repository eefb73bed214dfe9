package application

import (
	"context"
	"fmt"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
	"github.com/warehouse-ops/fulfillment-service/pkg/events"
	"github.com/warehouse-ops/fulfillment-service/pkg/kafka"
	"github.com/warehouse-ops/fulfillment-service/pkg/outbox"
)

const eventSource = "fulfillment-service"

// SyncNotifier propagates post-commit absolute quantities to the
// external inventory mirror. Best effort: implementations log failures
// and never return them to the caller.
type SyncNotifier interface {
	NotifyQuantity(ctx context.Context, tenantID, externalRef string, quantity int)
}

// InvoiceRenderer sends a committed invoice to the external renderer.
// Best effort like the notifier.
type InvoiceRenderer interface {
	Render(ctx context.Context, invoice *domain.Invoice)
}

// enqueueDomainEvents writes the aggregate's pending domain events to
// the transactional outbox using the transaction-scoped ctx, so the
// events commit or abort with the rest of the write set.
func enqueueDomainEvents(ctx context.Context, repo outbox.Repository, tenantID, aggregateID, aggregateType string, domainEvents []domain.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	records := make([]*outbox.OutboxEvent, 0, len(domainEvents))
	for _, evt := range domainEvents {
		envelope, err := events.New(evt.EventType(), eventSource, aggregateID, evt)
		if err != nil {
			return fmt.Errorf("failed to build event envelope: %w", err)
		}
		envelope.WithAccount(tenantID)

		record, err := outbox.NewOutboxEvent(aggregateID, aggregateType, kafka.TopicForEventType(evt.EventType()), envelope)
		if err != nil {
			return fmt.Errorf("failed to build outbox record: %w", err)
		}
		records = append(records, record)
	}

	return repo.SaveAll(ctx, records)
}

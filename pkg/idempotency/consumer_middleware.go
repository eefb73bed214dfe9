package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/warehouse-ops/fulfillment-service/pkg/events"
)

// EventHandler mirrors kafka.EventHandler so the wrapper composes with the
// consumer without importing it.
type EventHandler func(ctx context.Context, event *events.Envelope) error

// DeduplicatingHandler wraps handler so each message ID is processed at
// most once per consumer group. The Kafka layer delivers at-least-once;
// this wrapper turns redeliveries and publisher duplicates into no-ops.
// Metrics are optional; pass nil to skip recording.
func DeduplicatingHandler(config *ConsumerConfig, metrics *Metrics, handler EventHandler) EventHandler {
	return func(ctx context.Context, event *events.Envelope) error {
		attrs := []any{
			"messageId", event.ID,
			"topic", config.Topic,
			"eventType", event.Type,
			"service", config.ServiceName,
		}

		processed, err := config.Repository.IsProcessed(ctx, event.ID, config.Topic, config.ConsumerGroup)
		if err != nil {
			slog.Error("Deduplication check failed", append(attrs, "error", err)...)
			if metrics != nil {
				metrics.RecordMessageDeduplicationError(config.ServiceName, config.Topic, event.Type)
			}
			return err
		}
		if processed {
			slog.Info("Duplicate message skipped", attrs...)
			if metrics != nil {
				metrics.RecordMessageDeduplicationHit(config.ServiceName, config.Topic, event.Type)
			}
			return nil
		}

		if metrics != nil {
			metrics.RecordMessageDeduplicationMiss(config.ServiceName, config.Topic, event.Type)
		}

		if err := handler(ctx, event); err != nil {
			// Not marked processed, so the consumer redelivers.
			slog.Error("Message handler failed", append(attrs, "error", err)...)
			return err
		}

		now := time.Now().UTC()
		record := &MessageRecord{
			MessageID:     event.ID,
			Topic:         config.Topic,
			EventType:     event.Type,
			ConsumerGroup: config.ConsumerGroup,
			ServiceID:     config.ServiceName,
			CorrelationID: event.CorrelationID,
			ProcessedAt:   now,
			ExpiresAt:     now.Add(config.RetentionPeriod),
		}
		if err := config.Repository.MarkProcessed(ctx, record); err != nil {
			if errors.Is(err, ErrMessageAlreadyProcessed) {
				// Lost a race with a concurrent consumer; the message landed
				// exactly once either way.
				slog.Warn("Message was processed concurrently", attrs...)
				return nil
			}
			// Processed but not recorded; a redelivery will re-run the
			// handler, which must therefore tolerate replays of its side
			// effects.
			slog.Error("Failed to record processed message", append(attrs, "error", err)...)
			return err
		}

		return nil
	}
}

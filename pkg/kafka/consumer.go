package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/warehouse-ops/fulfillment-service/pkg/events"
	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/tracing"
)

// EventHandler processes one decoded event envelope. Returning an error
// leaves the message uncommitted so the group redelivers it.
type EventHandler func(ctx context.Context, event *events.Envelope) error

// Consumer reads event envelopes from Kafka topics and dispatches them to
// registered handlers by event type.
type Consumer struct {
	config   *Config
	readers  map[string]*kafka.Reader
	handlers map[string]map[string]EventHandler
	logger   *slog.Logger
}

func NewConsumer(config *Config, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		config:   config,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]map[string]EventHandler),
		logger:   logger,
	}
}

// Subscribe registers handler for one event type on topic. Registrations
// must happen before Start; the maps are not guarded by a lock.
func (c *Consumer) Subscribe(topic, eventType string, handler EventHandler) {
	if c.handlers[topic] == nil {
		c.handlers[topic] = make(map[string]EventHandler)
	}
	c.handlers[topic][eventType] = handler
}

// SubscribeAll registers handler for every event type on topic.
func (c *Consumer) SubscribeAll(topic string, handler EventHandler) {
	c.Subscribe(topic, "*", handler)
}

// Start consumes all subscribed topics until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	for topic := range c.handlers {
		go c.consumeTopic(ctx, topic)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) consumeTopic(ctx context.Context, topic string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        c.config.ConsumerGroup,
		Topic:          topic,
		MinBytes:       c.config.MinBytes,
		MaxBytes:       c.config.MaxBytes,
		MaxWait:        c.config.MaxWait,
		CommitInterval: c.config.CommitTimeout,
	})
	c.readers[topic] = reader

	c.logger.Info("Consumer started", "topic", topic, "group", c.config.ConsumerGroup)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Consumer stopped", "topic", topic)
				return
			}
			c.logger.Error("Fetch failed", "topic", topic, "error", err)
			continue
		}

		event, err := decodeEnvelope(msg)
		if err != nil {
			// A payload that cannot be decoded will never decode on retry.
			// Commit it so the partition keeps moving.
			c.logger.Error("Undecodable message skipped",
				"topic", topic, "offset", msg.Offset, "error", err)
			c.commit(ctx, reader, topic, msg)
			continue
		}

		msgCtx := tracing.ExtractTraceContext(ctx, headerCarrier(msg))
		if err := c.dispatch(msgCtx, topic, event); err != nil {
			c.logger.Error("Handler failed",
				"topic", topic,
				"eventType", event.Type,
				"eventId", event.ID,
				"error", err,
			)
			// Left uncommitted so the message is redelivered.
			continue
		}

		c.commit(ctx, reader, topic, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, reader *kafka.Reader, topic string, msg kafka.Message) {
	if err := reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Commit failed", "topic", topic, "offset", msg.Offset, "error", err)
	}
}

// headerCarrier exposes the message headers to the trace propagator so a
// consumer span joins the producing request's trace.
func headerCarrier(msg kafka.Message) tracing.MapCarrier {
	carrier := make(tracing.MapCarrier, len(msg.Headers))
	for _, h := range msg.Headers {
		carrier[h.Key] = string(h.Value)
	}
	return carrier
}

func decodeEnvelope(msg kafka.Message) (*events.Envelope, error) {
	var event events.Envelope
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	for _, header := range msg.Headers {
		switch header.Key {
		case "correlation-id":
			event.CorrelationID = string(header.Value)
		case "account-id":
			event.AccountID = string(header.Value)
		}
	}
	return &event, nil
}

// dispatch routes event to the handler registered for its type, falling
// back to the topic's wildcard handler.
func (c *Consumer) dispatch(ctx context.Context, topic string, event *events.Envelope) error {
	handlers := c.handlers[topic]
	if handlers == nil {
		return fmt.Errorf("no handlers registered for topic %s", topic)
	}

	if event.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, event.CorrelationID)
	}

	handler, ok := handlers[event.Type]
	if !ok {
		handler, ok = handlers["*"]
	}
	if !ok {
		c.logger.Warn("No handler for event type", "topic", topic, "eventType", event.Type)
		return nil
	}
	return handler(ctx, event)
}

// Close shuts down every reader, returning the last close error.
func (c *Consumer) Close() error {
	var lastErr error
	for topic, reader := range c.readers {
		if err := reader.Close(); err != nil {
			lastErr = fmt.Errorf("close reader for topic %s: %w", topic, err)
		}
	}
	return lastErr
}

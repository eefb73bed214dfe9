package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/warehouse-ops/fulfillment-service/pkg/events"
	"github.com/warehouse-ops/fulfillment-service/pkg/tracing"
)

// Producer publishes event envelopes, keeping one writer per topic.
type Producer struct {
	writers map[string]*kafka.Writer
	config  *Config
}

func NewProducer(config *Config) *Producer {
	return &Producer{
		writers: make(map[string]*kafka.Writer),
		config:  config,
	}
}

// PublishEvent publishes a single envelope to topic, keyed by the
// envelope's subject so events for one aggregate stay ordered.
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *events.Envelope) error {
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}
	msg.Headers = append(msg.Headers, traceHeaders(ctx)...)
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to topic %s: %w", topic, err)
	}
	return nil
}

// PublishBatch publishes the whole batch in one writer call. The batch
// fails as a unit if any envelope cannot be marshalled.
func (p *Producer) PublishBatch(ctx context.Context, topic string, batch []*events.Envelope) error {
	trace := traceHeaders(ctx)
	messages := make([]kafka.Message, 0, len(batch))
	for _, event := range batch {
		msg, err := encodeMessage(event)
		if err != nil {
			return fmt.Errorf("event %s: %w", event.ID, err)
		}
		msg.Headers = append(msg.Headers, trace...)
		messages = append(messages, msg)
	}
	if err := p.writer(topic).WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("publish batch to topic %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) writer(topic string) *kafka.Writer {
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    p.config.BatchSize,
		BatchTimeout: p.config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(p.config.RequiredAcks),
		Async:        false,
	}
	p.writers[topic] = w
	return w
}

func encodeMessage(event *events.Envelope) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal envelope: %w", err)
	}

	headers := []kafka.Header{
		{Key: "event-type", Value: []byte(event.Type)},
		{Key: "event-source", Value: []byte(event.Source)},
		{Key: "event-id", Value: []byte(event.ID)},
		{Key: "event-time", Value: []byte(event.Time.Format(time.RFC3339))},
	}
	if event.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation-id", Value: []byte(event.CorrelationID)})
	}
	if event.AccountID != "" {
		headers = append(headers, kafka.Header{Key: "account-id", Value: []byte(event.AccountID)})
	}

	return kafka.Message{
		Key:     []byte(event.Subject),
		Value:   data,
		Headers: headers,
		Time:    event.Time,
	}, nil
}

// traceHeaders serializes the current trace context into message headers
// so consumers can join the producing request's trace.
func traceHeaders(ctx context.Context) []kafka.Header {
	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	if len(carrier) == 0 {
		return nil
	}
	headers := make([]kafka.Header, 0, len(carrier))
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	return headers
}

// Close shuts down every writer, returning the last close error.
func (p *Producer) Close() error {
	var lastErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			lastErr = fmt.Errorf("close writer for topic %s: %w", topic, err)
		}
	}
	return lastErr
}

package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warehouse-ops/fulfillment-service/pkg/kafka"
	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
)

// PublisherConfig tunes the relay loop.
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
	}
}

// Publisher polls the outbox and relays pending events to Kafka. Events
// are processed oldest first; a publish failure increments the event's
// retry count and the loop moves on, so one bad event cannot stall the
// rest of the batch.
type Publisher struct {
	repo      Repository
	producer  *kafka.Producer
	logger    *logging.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int

	mu        sync.Mutex
	running   bool
	published int
	failed    int

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewPublisher(
	repo Repository,
	producer *kafka.Producer,
	logger *logging.Logger,
	m *metrics.Metrics,
	config *PublisherConfig,
) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}
	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger,
		metrics:   m,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the relay loop in its own goroutine.
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("publisher already running")
	}
	p.running = true

	p.logger.Info("Starting outbox publisher", "interval", p.interval, "batchSize", p.batchSize)
	go p.run(ctx)
	return nil
}

// Stop halts the loop and waits for the in-flight batch to finish.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher not running")
	}
	p.mu.Unlock()

	close(p.stopCh)
	<-p.stoppedCh

	p.mu.Lock()
	p.running = false
	published, failed := p.published, p.failed
	p.mu.Unlock()

	p.logger.Info("Outbox publisher stopped", "published", published, "failed", failed)
	return nil
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			p.logger.Info("Publisher context cancelled")
			return
		}
	}
}

// drain relays one batch of pending events.
func (p *Publisher) drain(ctx context.Context) {
	pending, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find unpublished events")
		return
	}

	if p.metrics != nil {
		p.metrics.SetOutboxPending(len(pending))
	}
	if len(pending) == 0 {
		return
	}

	for _, event := range pending {
		p.relay(ctx, event)
	}
}

func (p *Publisher) relay(ctx context.Context, event *OutboxEvent) {
	start := time.Now()
	err := p.publish(ctx, event)
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordOutboxPublish(event.EventType, err == nil, duration)
	}

	if err != nil {
		p.logger.WithError(err).Error("Failed to publish event",
			"eventId", event.ID,
			"eventType", event.EventType,
			"aggregateId", event.AggregateID,
		)
		p.count(false)
		if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
			p.logger.WithError(err).Error("Failed to increment retry count", "eventId", event.ID)
		}
		return
	}

	p.count(true)
	p.logger.Info("Published event from outbox",
		"eventId", event.ID,
		"eventType", event.EventType,
		"topic", event.Topic,
		"aggregateId", event.AggregateID,
		"durationMs", duration.Milliseconds(),
	)
	if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
		// The event will be relayed again next tick; consumers dedupe by
		// event ID, so the duplicate is harmless.
		p.logger.WithError(err).Error("Failed to mark event as published", "eventId", event.ID)
	}
}

func (p *Publisher) publish(ctx context.Context, event *OutboxEvent) error {
	envelope, err := event.ToEnvelope()
	if err != nil {
		return err
	}
	return p.producer.PublishEvent(ctx, event.Topic, envelope)
}

func (p *Publisher) count(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok {
		p.published++
	} else {
		p.failed++
	}
}

// IsRunning reports whether the relay loop is active.
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns cumulative publish counters.
func (p *Publisher) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"published": p.published,
		"failed":    p.failed,
	}
}

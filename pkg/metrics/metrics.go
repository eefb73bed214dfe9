// Package metrics defines the service's Prometheus instrumentation: HTTP,
// Kafka, MongoDB, outbox relay, mirror sync, and the fulfillment business
// counters.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	ServiceName string
	Namespace   string
}

func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "backoffice",
	}
}

// Metrics owns a private registry so tests can build instances without
// colliding on the global default registry.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	KafkaEventsPublished *prometheus.CounterVec
	KafkaEventsConsumed  *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec
	TransactionRetries       *prometheus.CounterVec

	OutboxPublished *prometheus.CounterVec
	OutboxPending   prometheus.Gauge

	ShipmentsConfirmed *prometheus.CounterVec
	ShipmentsRejected  *prometheus.CounterVec
	ReturnsProcessed   *prometheus.CounterVec
	StockAdjustments   *prometheus.CounterVec

	SyncAttempts        *prometheus.CounterVec
	SyncDuration        *prometheus.HistogramVec
	CircuitBreakerState *prometheus.GaugeVec
}

func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)
	ns := config.Namespace
	serviceLabel := prometheus.Labels{"service": config.ServiceName}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: name, Help: help,
		}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: name, Help: help, Buckets: buckets,
		}, labels)
	}

	fastBuckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}
	httpBuckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	syncBuckets := []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10}

	return &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,

		HTTPRequestsTotal: counter("http_requests_total",
			"Total number of HTTP requests",
			"service", "method", "path", "status"),
		HTTPRequestDuration: histogram("http_request_duration_seconds",
			"HTTP request duration in seconds", httpBuckets,
			"service", "method", "path"),
		HTTPRequestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: serviceLabel,
		}),

		KafkaEventsPublished: counter("kafka_events_published_total",
			"Total number of Kafka events published",
			"service", "topic", "event_type", "status"),
		KafkaEventsConsumed: counter("kafka_events_consumed_total",
			"Total number of Kafka events consumed",
			"service", "topic", "event_type", "status"),
		KafkaPublishDuration: histogram("kafka_publish_duration_seconds",
			"Kafka publish duration in seconds", fastBuckets,
			"service", "topic"),

		MongoDBOperations: counter("mongodb_operations_total",
			"Total number of MongoDB operations",
			"service", "collection", "operation", "status"),
		MongoDBOperationDuration: histogram("mongodb_operation_duration_seconds",
			"MongoDB operation duration in seconds",
			[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			"service", "collection", "operation"),
		TransactionRetries: counter("transaction_retries_total",
			"Total number of transaction retries after write conflicts",
			"service", "operation"),

		OutboxPublished: counter("outbox_events_published_total",
			"Total number of outbox events relayed to Kafka",
			"service", "event_type", "status"),
		OutboxPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Name:        "outbox_events_pending",
			Help:        "Number of outbox events awaiting publication",
			ConstLabels: serviceLabel,
		}),

		ShipmentsConfirmed: counter("shipments_confirmed_total",
			"Total number of shipment requests confirmed",
			"service"),
		ShipmentsRejected: counter("shipments_rejected_total",
			"Total number of shipment requests rejected",
			"service", "restored"),
		ReturnsProcessed: counter("returns_processed_total",
			"Total number of return transitions processed",
			"service", "transition"),
		StockAdjustments: counter("stock_adjustments_total",
			"Total number of inventory quantity adjustments",
			"service", "reason"),

		SyncAttempts: counter("mirror_sync_attempts_total",
			"Total number of mirror sync attempts",
			"service", "operation", "status"),
		SyncDuration: histogram("mirror_sync_duration_seconds",
			"Mirror sync call duration in seconds", syncBuckets,
			"service", "operation"),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"service", "name"}),
	}
}

// Handler serves the scrape endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

func (m *Metrics) RecordKafkaConsume(topic, eventType string, success bool) {
	m.KafkaEventsConsumed.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
}

func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

func (m *Metrics) RecordTransactionRetry(operation string) {
	m.TransactionRetries.WithLabelValues(m.serviceName, operation).Inc()
}

func (m *Metrics) RecordOutboxPublish(eventType string, success bool, duration time.Duration) {
	m.OutboxPublished.WithLabelValues(m.serviceName, eventType, statusLabel(success)).Inc()
}

func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

func (m *Metrics) RecordShipmentConfirmed() {
	m.ShipmentsConfirmed.WithLabelValues(m.serviceName).Inc()
}

// RecordShipmentRejected tracks rejections; restored records whether the
// reserved stock was returned to the ledger.
func (m *Metrics) RecordShipmentRejected(restored bool) {
	m.ShipmentsRejected.WithLabelValues(m.serviceName, strconv.FormatBool(restored)).Inc()
}

func (m *Metrics) RecordReturnTransition(transition string) {
	m.ReturnsProcessed.WithLabelValues(m.serviceName, transition).Inc()
}

func (m *Metrics) RecordStockAdjustment(reason string) {
	m.StockAdjustments.WithLabelValues(m.serviceName, reason).Inc()
}

func (m *Metrics) RecordSyncAttempt(operation string, success bool, duration time.Duration) {
	m.SyncAttempts.WithLabelValues(m.serviceName, operation, statusLabel(success)).Inc()
	m.SyncDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

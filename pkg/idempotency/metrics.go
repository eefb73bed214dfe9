package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes idempotency behavior to Prometheus. Hits mean a stored
// response was replayed; misses mean a request executed for the first time.
type Metrics struct {
	hits                 *prometheus.CounterVec
	misses               *prometheus.CounterVec
	parameterMismatches  *prometheus.CounterVec
	concurrentCollisions *prometheus.CounterVec
	lockDuration         *prometheus.HistogramVec
	storageErrors        *prometheus.CounterVec

	dedupHits   *prometheus.CounterVec
	dedupMisses *prometheus.CounterVec
	dedupErrors *prometheus.CounterVec
}

// NewMetrics registers the idempotency metrics with the given registerer.
// Pass nil to use the default registerer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	endpointLabels := []string{"service", "endpoint", "method"}
	messageLabels := []string{"service", "topic", "event_type"}

	return &Metrics{
		hits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_hits_total",
			Help: "Requests answered from a stored response",
		}, endpointLabels),
		misses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_misses_total",
			Help: "Requests executed for the first time under a key",
		}, endpointLabels),
		parameterMismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_parameter_mismatches_total",
			Help: "Key replays rejected because the request body differed",
		}, endpointLabels),
		concurrentCollisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_concurrent_collisions_total",
			Help: "Replays rejected because the original request was still running",
		}, endpointLabels),
		lockDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idempotency_lock_acquisition_duration_seconds",
			Help:    "Time spent acquiring the idempotency lock",
			Buckets: prometheus.DefBuckets,
		}, endpointLabels),
		storageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_storage_errors_total",
			Help: "Failures of the idempotency backing store",
		}, []string{"service", "operation"}),

		dedupHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "message_deduplication_hits_total",
			Help: "Duplicate messages skipped by consumers",
		}, messageLabels),
		dedupMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "message_deduplication_misses_total",
			Help: "Messages processed for the first time",
		}, messageLabels),
		dedupErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "message_deduplication_errors_total",
			Help: "Errors while checking or recording message deduplication state",
		}, messageLabels),
	}
}

func (m *Metrics) RecordHit(service, endpoint, method string) {
	m.hits.WithLabelValues(service, endpoint, method).Inc()
}

func (m *Metrics) RecordMiss(service, endpoint, method string) {
	m.misses.WithLabelValues(service, endpoint, method).Inc()
}

func (m *Metrics) RecordParameterMismatch(service, endpoint, method string) {
	m.parameterMismatches.WithLabelValues(service, endpoint, method).Inc()
}

func (m *Metrics) RecordConcurrentCollision(service, endpoint, method string) {
	m.concurrentCollisions.WithLabelValues(service, endpoint, method).Inc()
}

func (m *Metrics) RecordLockAcquisitionDuration(service, endpoint, method string, seconds float64) {
	m.lockDuration.WithLabelValues(service, endpoint, method).Observe(seconds)
}

func (m *Metrics) RecordStorageError(service, operation string) {
	m.storageErrors.WithLabelValues(service, operation).Inc()
}

func (m *Metrics) RecordMessageDeduplicationHit(service, topic, eventType string) {
	m.dedupHits.WithLabelValues(service, topic, eventType).Inc()
}

func (m *Metrics) RecordMessageDeduplicationMiss(service, topic, eventType string) {
	m.dedupMisses.WithLabelValues(service, topic, eventType).Inc()
}

func (m *Metrics) RecordMessageDeduplicationError(service, topic, eventType string) {
	m.dedupErrors.WithLabelValues(service, topic, eventType).Inc()
}

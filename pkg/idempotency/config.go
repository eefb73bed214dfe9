package idempotency

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultMaxKeyLength caps client-supplied keys, matching the common
	// 255-character convention.
	DefaultMaxKeyLength = 255

	// DefaultLockTimeout is how long a lock is honored before it is treated
	// as stale (the original request crashed without releasing it).
	DefaultLockTimeout = 5 * time.Minute

	// DefaultRetentionPeriod is how long key and message records are kept.
	DefaultRetentionPeriod = 24 * time.Hour

	// DefaultMaxResponseSize caps cached response bodies at 1MB.
	DefaultMaxResponseSize = 1 << 20
)

// Config controls the HTTP idempotency middleware.
type Config struct {
	// ServiceName namespaces keys so services sharing a database do not
	// collide.
	ServiceName string

	// Repository is the backing store for key records.
	Repository KeyRepository

	// RequireKey rejects mutating requests that omit the Idempotency-Key
	// header. When false such requests run without retry protection.
	RequireKey bool

	// OnlyMutating restricts the middleware to POST, PUT, PATCH and DELETE.
	OnlyMutating bool

	// UserIDExtractor, when set, scopes keys to the requesting user.
	UserIDExtractor func(*gin.Context) string

	// MaxKeyLength overrides DefaultMaxKeyLength.
	MaxKeyLength int

	// LockTimeout overrides DefaultLockTimeout.
	LockTimeout time.Duration

	// RetentionPeriod overrides DefaultRetentionPeriod.
	RetentionPeriod time.Duration

	// MaxResponseSize overrides DefaultMaxResponseSize. Larger responses
	// are replaced with an error marker rather than cached.
	MaxResponseSize int

	// Metrics is optional; nil disables metric recording.
	Metrics *Metrics
}

// DefaultConfig returns the standard middleware configuration: keys optional,
// mutating methods only.
func DefaultConfig(serviceName string, repository KeyRepository) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		RequireKey:      false,
		OnlyMutating:    true,
		MaxKeyLength:    DefaultMaxKeyLength,
		LockTimeout:     DefaultLockTimeout,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}

// ConsumerConfig controls Kafka message deduplication.
type ConsumerConfig struct {
	ServiceName   string
	Topic         string
	ConsumerGroup string

	// Repository is the backing store for processed-message records.
	Repository MessageRepository

	// RetentionPeriod is how long processed-message records are kept. It
	// must exceed the broker's redelivery window.
	RetentionPeriod time.Duration
}

// DefaultConsumerConfig returns the standard consumer deduplication
// configuration.
func DefaultConsumerConfig(serviceName, topic, consumerGroup string, repository MessageRepository) *ConsumerConfig {
	return &ConsumerConfig{
		ServiceName:     serviceName,
		Topic:           topic,
		ConsumerGroup:   consumerGroup,
		Repository:      repository,
		RetentionPeriod: DefaultRetentionPeriod,
	}
}

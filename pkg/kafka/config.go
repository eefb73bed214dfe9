package kafka

import (
	"time"
)

// Config covers both producer and consumer settings; each binary fills in
// the half it uses.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	ClientID      string

	// Producer
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0 none, 1 leader, -1 all replicas

	// Consumer
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	CommitTimeout time.Duration
}

// DefaultConfig requires acks from all replicas: outbox events must not be
// lost to a leader failover after MarkPublished.
func DefaultConfig() *Config {
	return &Config{
		Brokers:       []string{"localhost:9092"},
		ConsumerGroup: "fulfillment-default-group",
		ClientID:      "fulfillment-client",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1,

		MinBytes:      1,
		MaxBytes:      10e6,
		MaxWait:       500 * time.Millisecond,
		CommitTimeout: 5 * time.Second,
	}
}

// Topics contains all back-office Kafka topic names
var Topics = struct {
	InventoryEvents string
	ShipmentEvents  string
	ReturnEvents    string
	InventorySync   string
}{
	InventoryEvents: "backoffice.inventory.events",
	ShipmentEvents:  "backoffice.shipment.events",
	ReturnEvents:    "backoffice.return.events",
	InventorySync:   "backoffice.inventory.sync",
}

// TopicForEventType maps an event type to its destination topic.
func TopicForEventType(eventType string) string {
	switch eventType {
	case "fulfillment.shipment.confirmed", "fulfillment.shipment.rejected":
		return Topics.ShipmentEvents
	case "fulfillment.return.approved", "fulfillment.return.cancelled",
		"fulfillment.return.received", "fulfillment.return.shipped",
		"fulfillment.return.closed":
		return Topics.ReturnEvents
	case "fulfillment.inventory.sync":
		return Topics.InventorySync
	default:
		return Topics.InventoryEvents
	}
}

// TopicConfig describes how a topic should be provisioned.
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopicConfigs provisions the back-office topics. Return events are
// retained longer because return disputes reference them weeks later; the
// sync topic is a live feed and keeps only a day.
func DefaultTopicConfigs() []TopicConfig {
	const day = int64(24 * time.Hour / time.Millisecond)
	return []TopicConfig{
		{Name: Topics.InventoryEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: Topics.ShipmentEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 7 * day},
		{Name: Topics.ReturnEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 30 * day},
		{Name: Topics.InventorySync, Partitions: 6, ReplicationFactor: 3, RetentionMs: day},
	}
}

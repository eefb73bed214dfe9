package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warehouse-ops/fulfillment-service/pkg/events"
	"github.com/warehouse-ops/fulfillment-service/pkg/idempotency"
	"github.com/warehouse-ops/fulfillment-service/pkg/kafka"
	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
	"github.com/warehouse-ops/fulfillment-service/pkg/mongodb"

	syncmirror "github.com/warehouse-ops/fulfillment-service/internal/infrastructure/sync"
)

const serviceName = "fulfillment-sync-worker"

// syncPayload mirrors the inventory sync event data
type syncPayload struct {
	ProductID   string    `json:"productId"`
	TenantID    string    `json:"tenantId"`
	ExternalRef string    `json:"externalRef"`
	Quantity    int       `json:"quantity"`
	SyncedAt    time.Time `json:"syncedAt"`
}

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment sync worker")

	ctx := context.Background()

	mongoConfig := &mongodb.Config{
		URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:       getEnv("MONGODB_DATABASE", "fulfillment_db"),
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    20,
		MinPoolSize:    2,
		ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
	}
	mongoClient, err := mongodb.NewClient(ctx, mongoConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)

	if err := idempotency.InitializeIndexes(ctx, mongoClient.Database()); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	}
	messageRepo := idempotency.NewMongoMessageRepository(mongoClient.Database())

	m := metrics.New(metrics.DefaultConfig(serviceName))
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", m.Handler())
	metricsSrv := &http.Server{
		Addr:    getEnv("METRICS_ADDR", ":9091"),
		Handler: metricsMux,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Metrics server stopped")
		}
	}()

	notifier := syncmirror.NewNotifier(syncmirror.DefaultConfig(getEnv("MIRROR_BASE_URL", "http://localhost:8020")), logger, m)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = []string{getEnv("KAFKA_BROKERS", "localhost:9092")}
	kafkaConfig.ConsumerGroup = getEnv("KAFKA_CONSUMER_GROUP", serviceName)
	kafkaConfig.ClientID = serviceName

	consumer := kafka.NewConsumer(kafkaConfig, logger.Logger)
	defer consumer.Close()

	topic := kafka.Topics.InventorySync
	consumerConfig := idempotency.DefaultConsumerConfig(serviceName, topic, kafkaConfig.ConsumerGroup, messageRepo)
	idempotencyMetrics := idempotency.NewMetrics(m.Registry())

	handler := idempotency.DeduplicatingHandler(consumerConfig, idempotencyMetrics, func(ctx context.Context, event *events.Envelope) error {
		var payload syncPayload
		if err := event.DecodeData(&payload); err != nil {
			logger.WithError(err).Error("Failed to decode sync event", "event_id", event.ID)
			return nil // malformed events are not retryable
		}
		if payload.ExternalRef == "" {
			logger.Debug("Skipping sync event without external reference", "product_id", payload.ProductID)
			return nil
		}

		notifier.NotifyQuantity(ctx, payload.TenantID, payload.ExternalRef, payload.Quantity)
		return nil
	})
	consumer.SubscribeAll(topic, kafka.EventHandler(handler))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := consumer.Start(runCtx); err != nil && runCtx.Err() == nil {
			logger.WithError(err).Error("Consumer stopped unexpectedly")
		}
	}()
	logger.Info("Consumer started", "topic", topic, "group", kafkaConfig.ConsumerGroup)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down sync worker...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Metrics server shutdown failed")
	}
	logger.Info("Sync worker stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

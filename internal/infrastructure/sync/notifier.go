package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
	"github.com/warehouse-ops/fulfillment-service/pkg/resilience"
)

const breakerName = "mirror-sync"

// payload is the body POSTed to the mirror's sync endpoint. Quantity is
// the absolute on-hand count, so replays and reordering are harmless.
type payload struct {
	TenantID    string `json:"tenantId"`
	ExternalRef string `json:"externalRef"`
	Quantity    int    `json:"quantity"`
}

// Notifier pushes quantity changes for mirrored items to the external
// system of record. Delivery is best effort: failures are logged and
// counted, never propagated to the calling workflow.
type Notifier struct {
	baseURL string
	client  *http.Client
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// Config holds notifier configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

// NewNotifier creates a Notifier with a circuit breaker around the
// mirror endpoint.
func NewNotifier(config *Config, logger *logging.Logger, m *metrics.Metrics) *Notifier {
	componentLogger := logger.WithComponent("sync-notifier")
	return &Notifier{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig(breakerName), componentLogger.Logger),
		logger:  componentLogger,
		metrics: m,
	}
}

// NotifyQuantity pushes the absolute quantity for one mirrored item.
func (n *Notifier) NotifyQuantity(ctx context.Context, tenantID, externalRef string, quantity int) {
	start := time.Now()
	_, err := n.breaker.Execute(ctx, func() (interface{}, error) {
		return nil, n.post(ctx, payload{
			TenantID:    tenantID,
			ExternalRef: externalRef,
			Quantity:    quantity,
		})
	})
	duration := time.Since(start)

	success := err == nil
	n.logger.SyncAttempt(ctx, n.baseURL, "sync-inventory", success, duration)
	if n.metrics != nil {
		n.metrics.RecordSyncAttempt("sync-inventory", success, duration)
		n.metrics.SetCircuitBreakerState(breakerName, int(n.breaker.State()))
	}

	if err != nil {
		n.logger.Warn("Mirror sync failed",
			"tenantId", tenantID,
			"externalRef", externalRef,
			"quantity", quantity,
			"error", err,
		)
	}
}

// State exposes the breaker state for health reporting
func (n *Notifier) State() gobreaker.State {
	return n.breaker.State()
}

func (n *Notifier) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal sync payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/sync-inventory", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sync request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sync endpoint returned %d", resp.StatusCode)
	}
	return nil
}

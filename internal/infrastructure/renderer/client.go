package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
	"github.com/warehouse-ops/fulfillment-service/pkg/resilience"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

// Client asks the document service to render an invoice PDF. Rendering
// is best effort: the invoice document is already committed, so a
// failed render only delays the printable copy.
type Client struct {
	baseURL string
	client  *http.Client
	retry   *resilience.RetryConfig
	logger  *logging.Logger
}

// Config holds renderer client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// NewClient creates a renderer Client
func NewClient(config *Config, logger *logging.Logger) *Client {
	retry := resilience.DefaultRetryConfig()
	retry.Retryable = isTransient

	return &Client{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: config.Timeout},
		retry:   retry,
		logger:  logger.WithComponent("invoice-renderer"),
	}
}

// Render submits the invoice for rendering, retrying transient failures.
func (c *Client) Render(ctx context.Context, invoice *domain.Invoice) {
	err := resilience.Retry(ctx, c.retry, func() error {
		return c.post(ctx, invoice)
	})
	if err != nil {
		c.logger.Warn("Invoice render failed",
			"invoiceId", invoice.InvoiceID,
			"invoiceNumber", invoice.InvoiceNumber,
			"error", err,
		)
		return
	}
	c.logger.Debug("Invoice submitted for rendering", "invoiceId", invoice.InvoiceID)
}

func (c *Client) post(ctx context.Context, invoice *domain.Invoice) error {
	body, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("render endpoint returned %d", e.code)
}

// isTransient treats network failures and 5xx responses as retryable;
// a 4xx means the invoice payload is wrong and retrying cannot help.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}
	return true
}

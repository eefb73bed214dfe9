package renderer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"

	"github.com/warehouse-ops/fulfillment-service/internal/domain"
)

func TestClient_Render(t *testing.T) {
	var rendered *domain.Invoice
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/render", r.URL.Path)

		var invoice domain.Invoice
		require.NoError(t, json.NewDecoder(r.Body).Decode(&invoice))
		rendered = &invoice
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	logger := logging.New(logging.DefaultConfig("fulfillment-test"))
	client := NewClient(DefaultConfig(server.URL), logger)

	invoice := domain.NewInvoice("tenant-1", domain.ShippedSourceProductReturn, "RET-001", "Jo Customer", []domain.InvoiceLineItem{
		{Description: "Return handling: Widget", Quantity: 50, UnitPrice: 2.00, Amount: 100.00},
	})
	client.Render(context.Background(), invoice)

	require.NotNil(t, rendered)
	assert.Equal(t, invoice.InvoiceID, rendered.InvoiceID)
	assert.InDelta(t, 100.00, rendered.Total, 1e-9)
	assert.Equal(t, "Jo Customer", rendered.Recipient)
}

func TestClient_RenderSwallowsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	logger := logging.New(logging.DefaultConfig("fulfillment-test"))
	client := NewClient(DefaultConfig(server.URL), logger)

	invoice := domain.NewInvoice("tenant-1", domain.ShippedSourceProductReturn, "RET-001", "", nil)
	// best effort: no panic, no error surfaced
	client.Render(context.Background(), invoice)
}

func TestClient_RenderRetriesTransientFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	logger := logging.New(logging.DefaultConfig("fulfillment-test"))
	client := NewClient(DefaultConfig(server.URL), logger)

	invoice := domain.NewInvoice("tenant-1", domain.ShippedSourceProductReturn, "RET-001", "", nil)
	client.Render(context.Background(), invoice)

	assert.Equal(t, 2, calls)
}

func TestClient_RenderDoesNotRetryRejection(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	logger := logging.New(logging.DefaultConfig("fulfillment-test"))
	client := NewClient(DefaultConfig(server.URL), logger)

	invoice := domain.NewInvoice("tenant-1", domain.ShippedSourceProductReturn, "RET-001", "", nil)
	client.Render(context.Background(), invoice)

	assert.Equal(t, 1, calls, "4xx responses must not be retried")
}

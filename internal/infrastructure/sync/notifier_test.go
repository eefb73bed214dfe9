package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc) (*Notifier, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logging.New(logging.DefaultConfig("fulfillment-test"))
	return NewNotifier(DefaultConfig(server.URL), logger, nil), server
}

func TestNotifier_NotifyQuantity(t *testing.T) {
	var (
		mu       sync.Mutex
		received []payload
	)

	notifier, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync-inventory", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var p payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	notifier.NotifyQuantity(context.Background(), "tenant-1", "ext-42", 18)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "tenant-1", received[0].TenantID)
	assert.Equal(t, "ext-42", received[0].ExternalRef)
	assert.Equal(t, 18, received[0].Quantity)
}

func TestNotifier_SwallowsServerErrors(t *testing.T) {
	notifier, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	// best effort: no panic, no error surfaced
	notifier.NotifyQuantity(context.Background(), "tenant-1", "ext-42", 18)
	assert.Equal(t, gobreaker.StateClosed, notifier.State())
}

func TestNotifier_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	notifier, _ := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 10; i++ {
		notifier.NotifyQuantity(context.Background(), "tenant-1", "ext-42", i)
	}
	assert.Equal(t, gobreaker.StateOpen, notifier.State())
}

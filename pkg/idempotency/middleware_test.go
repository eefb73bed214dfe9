package idempotency

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeKeyRepository is an in-memory KeyRepository with the same locking
// semantics as the Mongo implementation.
type fakeKeyRepository struct {
	mu      sync.Mutex
	records map[string]*KeyRecord
	failAll bool
}

func newFakeKeyRepository() *fakeKeyRepository {
	return &fakeKeyRepository{records: make(map[string]*KeyRecord)}
}

func (r *fakeKeyRepository) AcquireLock(_ context.Context, record *KeyRecord) (*KeyRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failAll {
		return nil, false, errors.New("storage unavailable")
	}

	now := time.Now().UTC()
	id := record.ServiceID + "/" + record.Key
	if existing, ok := r.records[id]; ok {
		prior := *existing
		existing.LockedAt = &now
		return &prior, false, nil
	}

	stored := *record
	stored.ID = primitive.NewObjectID()
	stored.LockedAt = &now
	r.records[id] = &stored
	copied := stored
	return &copied, true, nil
}

func (r *fakeKeyRepository) ReleaseLock(_ context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ID.Hex() == recordID {
			record.LockedAt = nil
		}
	}
	return nil
}

func (r *fakeKeyRepository) StoreResponse(_ context.Context, recordID string, code int, body []byte, headers map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.ID.Hex() == recordID {
			now := time.Now().UTC()
			record.ResponseCode = code
			record.ResponseBody = body
			record.ResponseHeaders = headers
			record.CompletedAt = &now
			record.LockedAt = nil
		}
	}
	return nil
}

func (r *fakeKeyRepository) Get(_ context.Context, key, serviceID string) (*KeyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record, ok := r.records[serviceID+"/"+key]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (r *fakeKeyRepository) Clean(context.Context, time.Time) (int64, error) { return 0, nil }
func (r *fakeKeyRepository) EnsureIndexes(context.Context) error            { return nil }

func newTestRouter(t *testing.T, config *Config, handler gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(config))
	router.POST("/returns/ret-1/receive", handler)
	router.GET("/returns/ret-1", handler)
	return router
}

func doPost(router *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/returns/ret-1/receive", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestMiddlewareWithoutKey(t *testing.T) {
	t.Run("optional mode proceeds", func(t *testing.T) {
		config := DefaultConfig("fulfillment-service", newFakeKeyRepository())
		router := newTestRouter(t, config, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"received": 5})
		})

		w := doPost(router, "", `{"quantity":5}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("required mode rejects", func(t *testing.T) {
		config := DefaultConfig("fulfillment-service", newFakeKeyRepository())
		config.RequireKey = true
		router := newTestRouter(t, config, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"received": 5})
		})

		w := doPost(router, "", `{"quantity":5}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_REQUIRED")
	})
}

func TestMiddlewareRejectsMalformedKey(t *testing.T) {
	config := DefaultConfig("fulfillment-service", newFakeKeyRepository())
	router := newTestRouter(t, config, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := doPost(router, "key with spaces", `{"quantity":5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_INVALID")
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	repo := newFakeKeyRepository()
	config := DefaultConfig("fulfillment-service", repo)

	var calls int
	router := newTestRouter(t, config, func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"receivedQuantity": 5})
	})

	first := doPost(router, "receive-attempt-1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := doPost(router, "receive-attempt-1", `{"quantity":5}`)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls, "handler must run exactly once per key")
}

func TestMiddlewareRejectsKeyReuseWithDifferentBody(t *testing.T) {
	repo := newFakeKeyRepository()
	config := DefaultConfig("fulfillment-service", repo)
	router := newTestRouter(t, config, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"receivedQuantity": 5})
	})

	first := doPost(router, "receive-attempt-1", `{"quantity":5}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := doPost(router, "receive-attempt-1", `{"quantity":7}`)
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
	assert.Contains(t, second.Body.String(), "IDEMPOTENCY_PARAMETER_MISMATCH")
}

func TestMiddlewareRejectsConcurrentReplay(t *testing.T) {
	repo := newFakeKeyRepository()
	config := DefaultConfig("fulfillment-service", repo)

	// Seed a record that is locked but not completed, as if the original
	// request were still in flight.
	_, created, err := repo.AcquireLock(context.Background(), &KeyRecord{
		Key:       "receive-attempt-1",
		ServiceID: "fulfillment-service",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, created)

	router := newTestRouter(t, config, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := doPost(router, "receive-attempt-1", `{"quantity":5}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "IDEMPOTENCY_CONCURRENT_REQUEST")
}

func TestMiddlewareStorageFailure(t *testing.T) {
	repo := newFakeKeyRepository()
	repo.failAll = true
	config := DefaultConfig("fulfillment-service", repo)
	router := newTestRouter(t, config, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})

	w := doPost(router, "receive-attempt-1", `{"quantity":5}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMiddlewareSkipsGET(t *testing.T) {
	repo := newFakeKeyRepository()
	config := DefaultConfig("fulfillment-service", repo)
	router := newTestRouter(t, config, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"returnId": "ret-1"})
	})

	req := httptest.NewRequest(http.MethodGet, "/returns/ret-1", nil)
	req.Header.Set(HeaderIdempotencyKey, "receive-attempt-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, repo.records, "GET requests must not create records")
}

func TestMiddlewareDoesNotCacheServerErrors(t *testing.T) {
	repo := newFakeKeyRepository()
	config := DefaultConfig("fulfillment-service", repo)

	var calls int
	router := newTestRouter(t, config, func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transient"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"receivedQuantity": 5})
	})

	first := doPost(router, "receive-attempt-1", `{"quantity":5}`)
	require.Equal(t, http.StatusInternalServerError, first.Code)

	// The retry must re-execute instead of replaying the failure.
	second := doPost(router, "receive-attempt-1", `{"quantity":5}`)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, calls)
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want error
	}{
		{"uuid", "e6f7c1a2-4b3d-4c5e-8f9a-0b1c2d3e4f5a", nil},
		{"underscores and hyphens", "retry_2026-08-30", nil},
		{"empty", "", ErrKeyRequired},
		{"whitespace", "key with spaces", ErrKeyInvalid},
		{"punctuation", "key!", ErrKeyInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	t.Run("too long", func(t *testing.T) {
		long := make([]byte, DefaultMaxKeyLength+1)
		for i := range long {
			long[i] = 'a'
		}
		assert.ErrorIs(t, ValidateKey(string(long)), ErrKeyTooLong)
	})
}

func TestComputeFingerprintDistinguishesBodies(t *testing.T) {
	a := ComputeFingerprint([]byte(`{"quantity":5}`))
	b := ComputeFingerprint([]byte(`{"quantity":7}`))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, ComputeFingerprint([]byte(`{"quantity":5}`)))
}

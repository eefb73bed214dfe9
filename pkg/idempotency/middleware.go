package idempotency

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to supply a key.
const HeaderIdempotencyKey = "Idempotency-Key"

// captureWriter tees the response body so it can be stored alongside the key.
type captureWriter struct {
	gin.ResponseWriter
	body   *bytes.Buffer
	status int
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware returns a Gin middleware implementing idempotent request
// handling. The first request with a given key executes normally and its
// response is stored; replays return the stored response. A replay carrying a
// different body is rejected, and a replay arriving while the original is
// still executing gets 409.
func Middleware(config *Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.OnlyMutating && !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				abortWithCode(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_REQUIRED",
					"Idempotency-Key header is required for this operation")
				return
			}
			c.Next()
			return
		}

		if err := ValidateKeyWithMaxLength(key, config.MaxKeyLength); err != nil {
			abortWithCode(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_INVALID",
				fmt.Sprintf("invalid idempotency key: %v", err))
			return
		}

		var userID string
		if config.UserIDExtractor != nil {
			userID = config.UserIDExtractor(c)
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		execute(c, config, key, userID, ComputeFingerprint(body))
	}
}

func execute(c *gin.Context, config *Config, key, userID, fingerprint string) {
	ctx := c.Request.Context()
	now := time.Now().UTC()

	record := &KeyRecord{
		Key:                key,
		ServiceID:          config.ServiceName,
		UserID:             userID,
		RequestPath:        c.Request.URL.Path,
		RequestMethod:      c.Request.Method,
		RequestFingerprint: fingerprint,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	}

	stored, created, err := config.Repository.AcquireLock(ctx, record)
	if err != nil {
		slog.Error("idempotency lock acquisition failed",
			"error", err, "key", key, "path", c.Request.URL.Path)
		if config.Metrics != nil {
			config.Metrics.RecordStorageError(config.ServiceName, "acquire_lock")
		}
		abortWithCode(c, http.StatusServiceUnavailable, "IDEMPOTENCY_STORAGE_UNAVAILABLE",
			"idempotency storage is temporarily unavailable")
		return
	}

	if config.Metrics != nil {
		config.Metrics.RecordLockAcquisitionDuration(
			config.ServiceName, c.Request.URL.Path, c.Request.Method,
			time.Since(now).Seconds())
	}

	if stored.IsCompleted() {
		replay(c, config, key, fingerprint, stored)
		return
	}

	if !created && stored.IsLocked() {
		lockAge := time.Since(*stored.LockedAt)
		if lockAge < config.LockTimeout {
			slog.Warn("concurrent request for idempotency key",
				"key", key, "path", c.Request.URL.Path, "lockAge", lockAge)
			if config.Metrics != nil {
				config.Metrics.RecordConcurrentCollision(config.ServiceName, c.Request.URL.Path, c.Request.Method)
			}
			abortWithCode(c, http.StatusConflict, "IDEMPOTENCY_CONCURRENT_REQUEST",
				"a request with this idempotency key is currently being processed")
			return
		}
		// Stale lock from a crashed request; take it over.
		slog.Info("taking over stale idempotency lock",
			"key", key, "path", c.Request.URL.Path, "lockAge", lockAge)
	}

	if config.Metrics != nil {
		config.Metrics.RecordMiss(config.ServiceName, c.Request.URL.Path, c.Request.Method)
	}

	writer := &captureWriter{
		ResponseWriter: c.Writer,
		body:           &bytes.Buffer{},
		status:         http.StatusOK,
	}
	c.Writer = writer

	c.Next()

	finish(c, config, key, stored.ID.Hex(), writer)
}

// replay returns the stored response for a completed key, after verifying the
// retry carries the same body as the original request.
func replay(c *gin.Context, config *Config, key, fingerprint string, stored *KeyRecord) {
	if stored.RequestFingerprint != fingerprint {
		slog.Warn("idempotency key reused with different request body",
			"key", key, "path", c.Request.URL.Path)
		if config.Metrics != nil {
			config.Metrics.RecordParameterMismatch(config.ServiceName, c.Request.URL.Path, c.Request.Method)
		}
		abortWithCode(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_PARAMETER_MISMATCH",
			"request body differs from the original request with this idempotency key")
		return
	}

	if config.Metrics != nil {
		config.Metrics.RecordHit(config.ServiceName, c.Request.URL.Path, c.Request.Method)
	}

	for k, v := range stored.ResponseHeaders {
		c.Header(k, v)
	}
	c.Data(stored.ResponseCode, "application/json", stored.ResponseBody)
	c.Abort()
}

// finish persists the handler's response, or releases the lock when the
// handler failed so the client can retry with the same key.
func finish(c *gin.Context, config *Config, key, recordID string, writer *captureWriter) {
	ctx := c.Request.Context()

	// Server errors are transient; caching them would pin every retry to
	// the same failure until the record expires.
	if writer.status >= http.StatusInternalServerError {
		if err := config.Repository.ReleaseLock(ctx, recordID); err != nil {
			slog.Error("failed to release idempotency lock",
				"error", err, "key", key, "path", c.Request.URL.Path)
			if config.Metrics != nil {
				config.Metrics.RecordStorageError(config.ServiceName, "release_lock")
			}
		}
		return
	}

	body := writer.body.Bytes()
	if len(body) > config.MaxResponseSize {
		slog.Warn("response too large to cache",
			"key", key, "path", c.Request.URL.Path, "size", len(body))
		body = []byte(fmt.Sprintf(`{"error":"response too large to cache","size":%d}`, len(body)))
	}

	headers := make(map[string]string)
	for k, v := range c.Writer.Header() {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	if err := config.Repository.StoreResponse(ctx, recordID, writer.status, body, headers); err != nil {
		slog.Error("failed to store idempotency response",
			"error", err, "key", key, "path", c.Request.URL.Path)
		if config.Metrics != nil {
			config.Metrics.RecordStorageError(config.ServiceName, "store_response")
		}
	}
}

func abortWithCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

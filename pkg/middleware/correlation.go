package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/warehouse-ops/fulfillment-service/pkg/errors"
	"github.com/warehouse-ops/fulfillment-service/pkg/logging"
)

const (
	ContextKeyRequestID     = "requestId"
	ContextKeyCorrelationID = "correlationId"

	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// ensureID reads an identifier header, minting a fresh UUID when the caller
// did not send one, and echoes it back on the response.
func ensureID(c *gin.Context, header, contextKey string) string {
	id := c.GetHeader(header)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(contextKey, id)
	c.Header(header, id)
	return id
}

// RequestID assigns each request a unique identifier for log correlation
// within this service.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ensureID(c, HeaderRequestID, ContextKeyRequestID)
		c.Next()
	}
}

// CorrelationID propagates the cross-service correlation identifier. The ID
// is also planted in the request's context.Context so repositories and the
// outbox writer can attach it to persisted events.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ensureID(c, HeaderCorrelationID, ContextKeyCorrelationID)
		ctx := logging.ContextWithCorrelationID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LoggerConfig controls the request logging middleware.
type LoggerConfig struct {
	Logger       *slog.Logger
	ExcludePaths []string
}

// DefaultLoggerConfig excludes the probe endpoints that would otherwise
// dominate the log volume.
func DefaultLoggerConfig(logger *slog.Logger) *LoggerConfig {
	return &LoggerConfig{
		Logger:       logger,
		ExcludePaths: []string{"/health", "/ready", "/metrics"},
	}
}

// Logger emits one structured log line per request.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return LoggerWithConfig(DefaultLoggerConfig(logger))
}

// LoggerWithConfig is Logger with explicit configuration.
func LoggerWithConfig(config *LoggerConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(config.ExcludePaths))
	for _, path := range config.ExcludePaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latencyMs", latency.Milliseconds(),
			"clientIP", c.ClientIP(),
		}
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, "requestId", id)
		}
		if id := GetCorrelationID(c); id != "" {
			attrs = append(attrs, "correlationId", id)
		}
		if query != "" {
			attrs = append(attrs, "query", query)
		}
		if ua := c.Request.UserAgent(); ua != "" {
			attrs = append(attrs, "userAgent", ua)
		}

		config.Logger.Log(c.Request.Context(), levelFor(status), "HTTP request", attrs...)
	}
}

func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Recovery converts panics into a 500 response with the standard error
// envelope, logging the panic with its request identifiers.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered",
					"error", r,
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"requestId", GetRequestID(c),
					"correlationId", GetCorrelationID(c),
				)
				AbortWithAppError(c, &errors.AppError{
					Code:       "INTERNAL_ERROR",
					Message:    "An unexpected error occurred",
					HTTPStatus: http.StatusInternalServerError,
				})
			}
		}()
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID returns the correlation ID set by CorrelationID, or "".
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}

// Package logging configures structured JSON logging on top of log/slog.
// Every service binary builds one Logger at startup and installs it as the
// slog default; components derive child loggers with WithComponent.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/warehouse-ops/fulfillment-service/pkg/tracing"
)

// LogLevel names the supported levels in configuration.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig reads environment/version from the process environment and
// logs JSON to stdout at info level.
func DefaultConfig(serviceName string) *Config {
	return &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: envOr("ENVIRONMENT", "development"),
		Version:     envOr("VERSION", "unknown"),
		Output:      os.Stdout,
	}
}

// Logger wraps slog.Logger. The embedded logger carries the service,
// environment and version attributes on every record.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from config.
func New(config *Config) *Logger {
	var level slog.Level
	switch config.Level {
	case LevelDebug:
		level = slog.LevelDebug
	case LevelWarn:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	output := config.Output
	if output == nil {
		output = os.Stdout
	}

	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
				}
			}
			return a
		},
	})

	base := slog.New(handler).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)

	return &Logger{Logger: base}
}

// SetDefault installs this logger as the process-wide slog default, so
// library code logging via slog inherits the service attributes.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// WithComponent derives a logger tagged with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With("component", component)}
}

// WithError derives a logger carrying an error attribute. A nil error
// returns the receiver unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{Logger: l.Logger.With("error", err.Error())}
}

// WithContext derives a logger carrying the correlation attributes stored in
// the context, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(attrs...)}
}

// SyncAttempt records one outbound mirror-sync call. Failures log at Warn:
// mirror sync is best effort and a failure is expected operational noise,
// not an error in this service.
func (l *Logger) SyncAttempt(ctx context.Context, target, operation string, success bool, duration time.Duration) {
	level := slog.LevelDebug
	if !success {
		level = slog.LevelWarn
	}

	l.WithContext(ctx).Log(ctx, level, "Sync attempt",
		"target", target,
		"operation", operation,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

type contextKey string

const (
	// CorrelationIDKey carries the request correlation ID through contexts.
	CorrelationIDKey contextKey = "correlationId"
)

// ContextWithCorrelationID stores a correlation ID for downstream logging.
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

func contextAttrs(ctx context.Context) []any {
	var attrs []any
	if v := ctx.Value(CorrelationIDKey); v != nil {
		attrs = append(attrs, "correlationId", v)
	}
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		attrs = append(attrs, "traceId", traceID)
	}
	return attrs
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

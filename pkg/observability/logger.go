package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var slogLevels = map[LogLevel]slog.Level{
	DebugLevel: slog.LevelDebug,
	InfoLevel:  slog.LevelInfo,
	WarnLevel:  slog.LevelWarn,
	ErrorLevel: slog.LevelError,
}

func (l LogLevel) String() string {
	return l.slog().String()
}

func (l LogLevel) slog() slog.Level {
	if level, ok := slogLevels[l]; ok {
		return level
	}
	return slog.LevelInfo
}

// ParseLogLevel maps a configured level name to a LogLevel. Unknown names fall back to InfoLevel.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes structured JSON records through slog. Derived loggers share the handler.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a JSON logger writing to output, or stdout when output is nil
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level.slog()})
	return &Logger{logger: slog.New(handler)}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return NewLogger(ErrorLevel, io.Discard)
}

// OrNop returns l, or a discarding logger when l is nil
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}

func (l *Logger) with(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithField adds a field to every record written by the returned logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithFields adds multiple fields to every record written by the returned logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.with(args...)
}

// WithError records err under "error". A nil err returns l unchanged.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) Debug(message string) { l.logger.Debug(message) }
func (l *Logger) Info(message string)  { l.logger.Info(message) }
func (l *Logger) Warn(message string)  { l.logger.Warn(message) }
func (l *Logger) Error(message string) { l.logger.Error(message) }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// correlation holds the identifiers an operation carries through its context
type correlation struct {
	requestID      string
	userID         string
	subscriptionID string
}

type correlationKey struct{}

func correlationFrom(ctx context.Context) correlation {
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	c := correlationFrom(ctx)
	c.requestID = requestID
	return context.WithValue(ctx, correlationKey{}, c)
}

// WithUserID records the acting user in the context
func WithUserID(ctx context.Context, userID string) context.Context {
	c := correlationFrom(ctx)
	c.userID = userID
	return context.WithValue(ctx, correlationKey{}, c)
}

// WithSubscriptionID records the subscription being operated on in the context
func WithSubscriptionID(ctx context.Context, subscriptionID string) context.Context {
	c := correlationFrom(ctx)
	c.subscriptionID = subscriptionID
	return context.WithValue(ctx, correlationKey{}, c)
}

func GetRequestID(ctx context.Context) string      { return correlationFrom(ctx).requestID }
func GetUserID(ctx context.Context) string         { return correlationFrom(ctx).userID }
func GetSubscriptionID(ctx context.Context) string { return correlationFrom(ctx).subscriptionID }

// Enrich adds the correlation IDs and, for a recording span, the trace and span IDs
// carried by ctx to logger.
func Enrich(ctx context.Context, logger *Logger) *Logger {
	logger = OrNop(logger)
	c := correlationFrom(ctx)

	var args []interface{}
	if c.requestID != "" {
		args = append(args, "request_id", c.requestID)
	}
	if c.userID != "" {
		args = append(args, "user_id", c.userID)
	}
	if c.subscriptionID != "" {
		args = append(args, "subscription_id", c.subscriptionID)
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		sc := span.SpanContext()
		args = append(args, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}

	if len(args) == 0 {
		return logger
	}
	return logger.with(args...)
}

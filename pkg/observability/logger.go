package observability

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// LogFormat selects the logrus formatter
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// NewLogger creates a logrus logger writing to output (stdout when nil).
// Unknown levels fall back to info.
func NewLogger(level string, format LogFormat, output io.Writer) *logrus.Logger {
	if output == nil {
		output = os.Stdout
	}

	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetLevel(ParseLevel(level))

	switch format {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// ParseLevel converts a level name to a logrus level
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// OrDefault returns logger, or a fresh logrus logger when it is nil
func OrDefault(logger *logrus.Logger) *logrus.Logger {
	if logger == nil {
		return logrus.New()
	}
	return logger
}

// contextKey is the type for context keys
type contextKey string

// LoggerKey is the context key for the request-scoped log entry
const LoggerKey contextKey = "logger"

// WithEntry stores a log entry in the context
func WithEntry(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, LoggerKey, entry)
}

// EntryFromContext returns the entry stored in ctx, or one derived from fallback.
// Trace and span ids are attached when ctx carries a recording span.
func EntryFromContext(ctx context.Context, fallback *logrus.Logger) *logrus.Entry {
	entry, ok := ctx.Value(LoggerKey).(*logrus.Entry)
	if !ok {
		entry = logrus.NewEntry(OrDefault(fallback))
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return entry
	}

	spanCtx := span.SpanContext()
	return entry.WithFields(logrus.Fields{
		"trace_id": spanCtx.TraceID().String(),
		"span_id":  spanCtx.SpanID().String(),
	})
}

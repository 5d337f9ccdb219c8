// Package logging sets up the JSON logger and the helpers pipeline stages
// and HTTP handlers log through.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"busexplorer.nyc/internal/failure"
)

type loggerKey struct{}

// NewStructuredLogger returns a logger writing JSON lines to w.
func NewStructuredLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a config value (debug, info, warn, error) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// LogError logs err at error level. A classified pipeline failure also
// logs its kind and the upstream status code when there was one.
func LogError(logger *slog.Logger, message string, err error, attrs ...slog.Attr) {
	if logger == nil || err == nil {
		return
	}
	all := []slog.Attr{slog.String("error", err.Error())}
	var fe *failure.Error
	if errors.As(err, &fe) {
		all = append(all, slog.String("kind", string(fe.Kind)))
		if fe.Status != 0 {
			all = append(all, slog.Int("upstream_status", fe.Status))
		}
	}
	logger.LogAttrs(context.Background(), slog.LevelError, message, append(all, attrs...)...)
}

// LogStage logs a finished pipeline stage with the milliseconds since
// start. A zero start leaves out the timing.
func LogStage(logger *slog.Logger, stage string, start time.Time, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	if !start.IsZero() {
		attrs = append([]slog.Attr{durationMs(time.Since(start))}, attrs...)
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, stage, attrs...)
}

// LogHTTPRequest logs one served request.
func LogHTTPRequest(logger *slog.Logger, method, path string, status int, elapsed time.Duration, attrs ...slog.Attr) {
	if logger == nil {
		return
	}
	all := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		durationMs(elapsed),
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "http_request", append(all, attrs...)...)
}

func durationMs(d time.Duration) slog.Attr {
	return slog.Float64("duration_ms", float64(d.Microseconds())/1000)
}

// WithLogger stores a request-scoped logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored by WithLogger, or fallback when
// ctx has none. A nil fallback means slog.Default().
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}

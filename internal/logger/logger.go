package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is a JSON slog logger carrying service and hostname on every record.
// Records are keyed by an action name, e.g. "order_created".
type Logger struct {
	*slog.Logger
}

func New(service, level string) *Logger {
	return NewWithWriter(os.Stdout, service, level)
}

func NewWithWriter(w io.Writer, service, level string) *Logger {
	hostname, _ := os.Hostname()
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &Logger{slog.New(h).With(
		slog.String("service", service),
		slog.String("hostname", hostname),
	)}
}

func (l *Logger) Info(action, msg string, args ...any) {
	l.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs(action, nil, args)...)
}

func (l *Logger) Debug(action, msg string, args ...any) {
	l.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs(action, nil, args)...)
}

func (l *Logger) Warn(action, msg string, args ...any) {
	l.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs(action, nil, args)...)
}

func (l *Logger) Error(action, msg string, err error, args ...any) {
	l.LogAttrs(context.Background(), slog.LevelError, msg, attrs(action, err, args)...)
}

func attrs(action string, err error, args []any) []slog.Attr {
	out := []slog.Attr{slog.String("action", action)}
	if err != nil {
		out = append(out, slog.String("error", err.Error()))
	}
	r := slog.NewRecord(time.Time{}, 0, "", 0)
	r.Add(args...)
	r.Attrs(func(a slog.Attr) bool {
		out = append(out, a)
		return true
	})
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard is handy in tests.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// Package logging provides the module-scoped slog loggers used across penrelay.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

const componentKey = "component"

var defaultHandler atomic.Value // stores slog.Handler

func init() {
	defaultHandler.Store(slog.Handler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Init configures the process-wide logging backend. Call it once at
// startup before any component loggers are obtained: L binds the handler
// that is current when L is called, so loggers obtained from L before
// Init keep writing through the previous handler.
func Init(format, level string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = slog.NewTextHandler(output, opts)
	}
	defaultHandler.Store(h)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns a logger scoped to component, e.g. logging.L("session").
func L(component string) *slog.Logger {
	h := defaultHandler.Load().(slog.Handler)
	return slog.New(h).With(slog.String(componentKey, component))
}

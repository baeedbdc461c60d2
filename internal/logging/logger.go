// Package logging builds the process-wide slog logger from settings.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/openbias/biasd/internal/config"
)

// New returns a logger writing to the configured output ("stdout" or
// "stderr"), in JSON or text format, tagged with the service and version.
func New(cfg config.LoggingSettings, version string) *slog.Logger {
	var out io.Writer = os.Stderr
	if strings.EqualFold(cfg.Output, "stdout") {
		out = os.Stdout
	}
	return NewWriter(cfg, version, out)
}

// NewWriter is New with an explicit destination.
func NewWriter(cfg config.LoggingSettings, version string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "biasd"),
		slog.String("version", version),
	})
	return slog.New(handler)
}

// ParseLevel converts debug, info, warn or error to a slog.Level.
// Unrecognised values give info.
func ParseLevel(level string) slog.Level {
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

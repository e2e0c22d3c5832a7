package observability

import (
	"log/slog"
	"os"
)

// NewLogger returns a text logger on stderr tagged with the service name and sets it as
// the process default.
func NewLogger(service string, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("service", service)
	slog.SetDefault(logger)
	return logger
}

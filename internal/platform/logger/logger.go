package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Production environments get JSON
// output for log shipping; anything else gets text for readability.
func New(environment string) *slog.Logger {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(handler).With("service", "avatar-gateway", "environment", environment)
}

package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Shipped environments run JSON for
// the log pipeline; anything else gets the text handler so local output
// stays readable. Source locations are always attached because denial
// decisions are debugged from logs alone.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	if cfg != nil {
		logger = logger.With(slog.String("env", cfg.AppEnv))
	}
	return logger
}

package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. JSON to stdout so log pipelines can parse
// events without extra configuration.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

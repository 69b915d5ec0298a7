package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so the log
// pipeline can index fields without parsing.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("CLINICORE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

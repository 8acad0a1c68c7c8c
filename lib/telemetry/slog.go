package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the default text handler. Log lines go to stderr so
// stdout stays clean for piped output (json / magnet list).
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug || os.Getenv("RBGCLI_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

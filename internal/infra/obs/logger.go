package obs

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger writes colored text in dev/local and JSON everywhere else. A
// non-empty level such as "debug" or "warn" overrides the env default.
func NewLogger(env, level string) *slog.Logger {
	return buildLogger(os.Stdout, env, level)
}

func buildLogger(w io.Writer, env, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch env {
	case "dev", "local":
		lvl = slog.LevelDebug
	case "test":
		lvl = slog.LevelWarn
	}
	if level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(level)); err == nil {
			lvl = parsed
		}
	}
	if env == "dev" || env == "local" {
		return slog.New(tint.NewHandler(w, &tint.Options{Level: lvl, TimeFormat: time.RFC3339, AddSource: true}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: env != "test"}))
}

package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dwrignell/homesynth/internal/infrastructure/config"
)

// Logger wraps slog.Logger so every line carries the service and version
// fields, letting homesynth logs interleave cleanly with the rest of a
// Home Assistant deployment's log stream.
//
// All methods are safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of config.yaml.
//
// Format is "json" (production default) or "text"; output is "stdout" or
// "stderr"; level is one of debug/info/warn/error.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Application version, attached to every line
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer = os.Stdout
	if strings.ToLower(cfg.Output) == "stderr" {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "homesynth"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps a config string to a slog.Level, defaulting to info.
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

// With returns a new Logger carrying additional default attributes.
//
// Example:
//
//	ingestLog := logger.With("component", "statestream")
//	ingestLog.Info("subscribed") // Includes component=statestream
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON/info/stdout logger for use before the config file
// has been loaded. main swaps it for a configured one immediately after.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}

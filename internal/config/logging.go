package config

import (
	"fmt"
	"io"
	"log/slog"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

type LogConfig struct {
	Level  string
	Format string
}

// NewLogger builds the process logger. Output is meant for stderr so it never
// mixes with command output.
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case LogFormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case LogFormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported format %q", KeyLogFormat, cfg.Format)
	}
}

func parseLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", raw)
	}
}

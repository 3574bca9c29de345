// Package logging configures the engine's structured logger: JSON output
// to a rotated file via lumberjack, bridged through log/slog.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log destination and rotation.
type Config struct {
	Service    string
	Env        string
	FilePath   string // empty writes to stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Setup configures a JSON slog.Logger for the engine process and installs
// it as the default logger.
func Setup(cfg Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if strings.TrimSpace(cfg.FilePath) != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			}
			if attr.Key == slog.LevelKey {
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			}
			if attr.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(cfg.Service))}
	if env := strings.TrimSpace(cfg.Env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	withArgs := make([]any, len(attrs))
	for i, a := range attrs {
		withArgs[i] = a
	}

	logger := slog.New(handler).With(withArgs...)
	slog.SetDefault(logger)
	return logger
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

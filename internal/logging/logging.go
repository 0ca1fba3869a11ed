// Package logging configures structured logging with tint, optionally
// mirrored to a rotating log file.
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
//	LOG_FILE:  path of a rotating JSON log file (default: none)
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup installs the default logger from LOG_LEVEL and LOG_FILE.
// The returned closer flushes the log file, if any.
func Setup() io.Closer {
	return SetupWith(LevelFromString(os.Getenv("LOG_LEVEL")), os.Getenv("LOG_FILE"))
}

// SetupWith installs a tint console handler at level and, when file is set,
// a JSON handler writing to a lumberjack-rotated file.
func SetupWith(level slog.Level, file string) io.Closer {
	console := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		AddSource:  level == slog.LevelDebug,
	})

	if file == "" {
		slog.SetDefault(slog.New(console))
		return nopCloser{}
	}

	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	jsonHandler := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(fanout{console, jsonHandler}))
	return rotating
}

// LevelFromString maps a LOG_LEVEL value to a slog level, defaulting to info
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

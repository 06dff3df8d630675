package logger

import (
	"io"
	"log/slog"
	"os"

	"vlmax-platform/internal/config"
)

// Logger is usable before InitLogger runs so package init code and tests can log.
var Logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

func InitLogger(cfg *config.Config) {
	InitLoggerTo(cfg, os.Stdout)
}

// InitLoggerTo is used by CLIs whose stdout carries a result payload.
func InitLoggerTo(cfg *config.Config, w io.Writer) {
	debug := cfg.GinMode == "debug"
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, AddSource: debug})
	Logger = slog.New(handler).With("service", cfg.ServiceName)
	slog.SetDefault(Logger)
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

func Info(msg string, args ...any) { Logger.Info(msg, args...) }
func Warn(msg string, args ...any) { Logger.Warn(msg, args...) }
func Error(msg string, args ...any) { Logger.Error(msg, args...) }
func Debug(msg string, args ...any) { Logger.Debug(msg, args...) }

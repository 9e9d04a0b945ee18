package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/polkiloo/orderboard/internal/config"
)

// New creates a preconfigured slog.Logger. When a log file is configured the
// output is also written to a size-rotated file.
func New(cfg *config.Config) *slog.Logger {
	var w io.Writer = os.Stdout
	level := slog.LevelInfo
	if cfg != nil {
		level = parseLevel(cfg.LogLevel)
		if cfg.LogFile != "" {
			w = io.MultiWriter(os.Stdout, rotatingFile(cfg.LogFile))
		}
	}
	return newWithWriter(w, level)
}

func newWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

package cmd

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/webitel/im-sync-core/config"
)

// ProvideLogger builds the process-wide structured logger (spec ambient
// stack: log/slog, rotated through lumberjack the same way the teacher's
// handler code assumes a shared *slog.Logger is available).
func ProvideLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.Logging.Level))
	opts := &slog.HandlerOptions{Level: level}

	writer := io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   "im-sync-core.log",
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	})

	var handler slog.Handler
	if cfg.Logging.JSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Package iologger sets up the default slog logger.
package iologger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gnames/gntree/pkg/config"
)

// LogFile is the name of the log file in the log directory.
const LogFile = "gntree.log"

// Init sets the default slog logger. With "file" destination it writes
// to LogFile in logDir, appending when appendLog is true and starting a
// fresh file otherwise. Long running commands append.
func Init(logDir string, cfg config.LogConfig, appendLog bool) error {
	var writer io.Writer
	switch cfg.Destination {
	case "stdout":
		writer = os.Stdout
	case "file":
		path := filepath.Join(logDir, LogFile)
		flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if appendLog {
			flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		file, err := os.OpenFile(path, flag, 0644)
		if err != nil {
			return CreateLogFileError(path, err)
		}
		writer = file
	default:
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

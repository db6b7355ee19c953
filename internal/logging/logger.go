// v1
// internal/logging/logger.go
package logging

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

// Init sets up slog to write to both stdout and a log file. It returns the
// logger and the opened file so callers can Close() on shutdown. LOG_DIR
// overrides the directory.
func Init() (*slog.Logger, *os.File) {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "./logs"
	}
	_ = os.MkdirAll(logDir, 0o755)

	fp := filepath.Join(logDir, "greenhouse.log")
	f, err := os.OpenFile(fp, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		lg := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		lg.Error("log file open failed; using stdout only", "error", err)
		return lg, os.Stdout
	}

	mw := NewMultiWriter(f, os.Stdout)
	lg := slog.New(slog.NewTextHandler(mw, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// keep legacy stdlib log output aligned with slog
	log.SetOutput(mw)
	return lg, f
}

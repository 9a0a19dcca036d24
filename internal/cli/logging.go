package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"questboard/internal/config"
)

// newLogger builds the process logger. Logs go to the configured file, or to
// stderr for non-interactive commands. The returned closer is nil unless a
// log file was opened.
func newLogger(cfg config.Config, stderr io.Writer) (*log.Logger, io.Closer, error) {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(strings.TrimSpace(cfg.LogLevel))
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)
	logger.SetOutput(stderr)

	if path := strings.TrimSpace(cfg.LogFile); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		logger.SetOutput(f)
		logger.SetFormatter(&log.JSONFormatter{})
		return logger, f, nil
	}
	return logger, nil, nil
}

package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	if c := os.Getenv("KARALINE_LOG_FILE"); c != "" {
		return c, nil
	}
	dir, err := gap.NewScope(gap.User, "karaline").CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "karaline.log"), nil
}

// setupLog sends logs to a file. The viewer owns the terminal, anything
// written to stderr would tear the frame.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	log.SetOutput(f)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.RFC3339)
	log.SetLevel(log.InfoLevel)
	return f.Close, nil
}

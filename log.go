package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// setupLog routes CLI logging. Output is discarded unless MEMODISK_LOGFILE
// points somewhere; MEMODISK_DEBUG=1 raises the level to debug. The returned
// closer flushes the log file on exit.
func setupLog() (func() error, error) {
	if os.Getenv("MEMODISK_DEBUG") == "1" {
		log.SetLevel(log.DebugLevel)
	}

	if logFile := os.Getenv("MEMODISK_LOGFILE"); logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, err
		}
		log.SetOutput(f)
		return f.Close, nil
	}

	if os.Getenv("MEMODISK_DEBUG") == "1" {
		log.SetOutput(os.Stderr)
		return func() error { return nil }, nil
	}

	log.SetOutput(io.Discard)
	return func() error { return nil }, nil
}

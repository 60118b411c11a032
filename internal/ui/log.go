package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger is the process logger handed to core packages
var Logger = newLogger(os.Stderr, false)

// SetupLogging configures the logger based on verbosity
func SetupLogging(verbose bool) {
	Logger = newLogger(os.Stderr, verbose)
	log.SetDefault(Logger)
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		ReportCaller:    verbose,
		Prefix:          "noter",
	})
}

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// New returns a named logger at the given level writing to w. A nil w means
// stderr. VULNSCAN_LOG_LEVEL is consulted when level is empty.
func New(name, level string, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if level == "" {
		level = os.Getenv("VULNSCAN_LOG_LEVEL")
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  ParseLevel(level),
		Output: w,
	})
}

// ParseLevel maps a level name to an hclog level, defaulting to info.
func ParseLevel(s string) hclog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "INFO":
		return hclog.Info
	case "WARN", "WARNING":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	case "OFF":
		return hclog.Off
	default:
		return hclog.Info
	}
}

// Discard returns a logger that drops everything. Used when no logger is
// supplied.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}

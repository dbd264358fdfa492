package logging

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]hclog.Level{
		"trace":   hclog.Trace,
		"DEBUG":   hclog.Debug,
		" info ":  hclog.Info,
		"warning": hclog.Warn,
		"error":   hclog.Error,
		"off":     hclog.Off,
		"":        hclog.Info,
		"chatty":  hclog.Info,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("vulnscan", "warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "file", "a.go")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "file=a.go")
	assert.Contains(t, out, "vulnscan")
}

func TestNew_EnvLevel(t *testing.T) {
	t.Setenv("VULNSCAN_LOG_LEVEL", "debug")
	var buf bytes.Buffer
	New("vulnscan", "", &buf).Debug("details")
	assert.Contains(t, buf.String(), "details")
}

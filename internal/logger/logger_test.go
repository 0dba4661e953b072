package logger

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestLog_FiltersBelowMinLevel(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	l := &Logger{terminal: &buf, minLevel: WARN}

	l.Info("BOOKING", "hidden")
	l.Warn("booking", "seat map stale")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARN  [BOOKING     ] seat map stale (logger_test.go:")
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, DEBUG, levelFromEnv())

	t.Setenv("LOG_LEVEL", "loud")
	assert.Equal(t, INFO, levelFromEnv())
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Error("API", "dropped")
	l.Close()
}

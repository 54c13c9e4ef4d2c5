package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogs(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevLevel, prevColors, prevOut := currentLogLevel, useColors, logOutput
	SetOutput(&buf)
	SetColors(false)
	SetLogLevel(level)
	t.Cleanup(func() {
		currentLogLevel, useColors, logOutput = prevLevel, prevColors, prevOut
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, LevelWarn)

	DebugLog("debug %d", 1)
	InfoLog("info %d", 2)
	WarnLog("warn %d", 3)
	ErrorLog("error %d", 4)

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "[WARN]  warn 3")
	assert.Contains(t, out, "[ERROR] error 4")
}

func TestQuietAndVerbose(t *testing.T) {
	captureLogs(t, LevelInfo)

	SetVerbose(true)
	assert.True(t, IsVerbose())
	assert.False(t, IsQuiet())

	SetQuiet(true)
	assert.True(t, IsQuiet())
	assert.False(t, IsVerbose())
}

func TestSuccessLogHiddenWhenQuiet(t *testing.T) {
	buf := captureLogs(t, LevelError)
	SuccessLog("done")
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestCountAndFormatBytes(t *testing.T) {
	assert.Equal(t, "1,234,567", Count(1234567))
	assert.Equal(t, "0", Count(0))
	assert.Equal(t, "2.0 kB", FormatBytes(2000))
	assert.Equal(t, "unknown", FormatBytes(-1))
}

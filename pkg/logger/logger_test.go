package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "log line must be JSON: %s", line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info("HTTP Request", "method", "GET", "status", 200)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "HTTP Request", entries[0]["message"])
	require.Equal(t, "INFO", entries[0]["severity"])
	require.Equal(t, "GET", entries[0]["method"])
	require.EqualValues(t, 200, entries[0]["status"])
	require.NotEmpty(t, entries[0]["timestamp"])
}

func TestLoggerErrorAppendsErrorField(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Error("Failed to render landing page", errors.New("boom"), "path", "/")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "ERROR", entries[0]["severity"])
	require.Equal(t, "boom", entries[0]["error"])
	require.Equal(t, "/", entries[0]["path"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantCount int
	}{
		{level: "debug", wantCount: 4},
		{level: "info", wantCount: 3},
		{level: "warn", wantCount: 2},
		{level: "error", wantCount: 1},
		{level: "unknown", wantCount: 3},
		{level: "", wantCount: 3},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(tt.level, &buf)

			log.Debug("debug")
			log.Info("info")
			log.Warn("warn")
			log.Error("error", nil)

			require.Len(t, decodeLines(t, &buf), tt.wantCount)
		})
	}
}

func TestLoggerWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf).With("component", "landing")

	log.Info("rendered")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	require.Equal(t, "landing", entries[0]["component"])
}

func TestNopLoggerIsSilent(t *testing.T) {
	log := NewNop()
	log.Error("ignored", errors.New("boom"))
	require.False(t, log.Enabled("error"))
}

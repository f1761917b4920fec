package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlog_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := newSlog(&buf, SlogConfig{Level: "info", Format: "json"})

	l.Debug("hidden")
	l.Info("user logged in", "user_id", "u1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "user logged in", rec["msg"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Equal(t, "videotube", rec["service"])
	assert.NotEmpty(t, rec["time"])
}

func TestNewSlog_Text(t *testing.T) {
	var buf bytes.Buffer
	l := newSlog(&buf, SlogConfig{Level: "debug", Format: "text"})

	l.Debug("refresh rotated")

	assert.Contains(t, buf.String(), "msg=\"refresh rotated\"")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

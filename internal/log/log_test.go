package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests replace the global logger, so they do not run in parallel.

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWithWriter(&buf, "json", "debug"))
	t.Cleanup(func() { require.NoError(t, Setup(EncoderConsole, "info")) })

	Info("handshake accepted", "path", "/websocket", "status", 101)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "handshake accepted", entry["message"])
	assert.Equal(t, "/websocket", entry["path"])
	assert.EqualValues(t, 101, entry["status"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWithWriter(&buf, "json", "warn"))
	t.Cleanup(func() { require.NoError(t, Setup(EncoderConsole, "info")) })

	Debug("dropped")
	Info("dropped")
	Warn("kept", "reason", "Origin not allowed")
	Error(nil)
	Error(errors.New("boom"), "remote", "127.0.0.1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "kept")
	assert.Contains(t, lines[1], "boom")
}

func TestSetupInvalidLevel(t *testing.T) {
	err := SetupWithWriter(&bytes.Buffer{}, "json", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logger level")
	assert.NotNil(t, Logger())
}

func TestConsoleEncoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupWithWriter(&buf, "console", ""))
	t.Cleanup(func() { require.NoError(t, Setup(EncoderConsole, "info")) })

	Info("server started listening", "addr", ":3000")

	assert.Contains(t, buf.String(), "server started listening")
	assert.Contains(t, buf.String(), ":3000")
}

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestInitializeWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "info", "json")

	WithService("booking").Info("booking created", "booking_id", 7)
	Debug("hidden at info level")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "booking created", line["msg"])
	assert.Equal(t, "booking", line["service"])
	assert.EqualValues(t, 7, line["booking_id"])
}

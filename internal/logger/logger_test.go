package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/hooklog/internal/config"
)

func TestNewWithWriter_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.ObservabilityConfig{
		ServiceName: "hooklog",
		Environment: "test",
		LogLevel:    "warn",
		LogFormat:   "json",
	}, &buf)

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("kept")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "hooklog", line["service"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, "warn", line["level"])
}

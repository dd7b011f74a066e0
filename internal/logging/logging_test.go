package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/reader-autopilot/internal/config"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggerConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	comp := Component(logger, "dispatch")
	comp.Info().Msg("dropped")
	comp.Warn().Int("attempt", 2).Msg("kept")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "kept", line["message"])
	assert.Equal(t, "dispatch", line["comp"])
	assert.Equal(t, "warn", line["level"])
	assert.EqualValues(t, 2, line["attempt"])
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggerConfig{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)

	logger.Debug().Str("comp", "loop").Msg("tick")
	assert.Contains(t, buf.String(), "tick")
	assert.Contains(t, buf.String(), "comp=loop")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LoggerConfig{Level: "chatty"}, nil)
	assert.Error(t, err)
}

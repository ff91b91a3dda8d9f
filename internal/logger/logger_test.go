package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWriterJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Logger{Level: "debug", Format: "json"}.SetupWriter(&buf)

	log.Debug().Int("tiles", 3).Msg("Written")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "Written", entry["message"])
	assert.EqualValues(t, 3, entry["tiles"])
}

func TestSetupWriterLevelFilter(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Logger{Level: "warn", Format: "json"}.SetupWriter(&buf)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetupWriterBadLevelFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	Logger{Level: "loud", Format: "pretty", NoColor: true}.SetupWriter(&buf)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	log.Info().Str("map", "fr").Msg("Pretty")
	assert.Contains(t, buf.String(), "Pretty")
	assert.Contains(t, buf.String(), "map=fr")
}

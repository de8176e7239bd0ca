package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithWriter_JSON(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	l := Component("sweep")
	l.Debug().Int64("user_id", 7).Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sweep", line["component"])
	assert.Equal(t, "property-recs", line["service"])
	assert.Equal(t, "debug", line["level"])
	assert.EqualValues(t, 7, line["user_id"])
}

func TestInitWithWriter_LevelFilters(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	zlog.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	zlog.Warn().Msg("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestInitWithWriter_BadLevelFallsBackToInfo(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "loud")

	var buf bytes.Buffer
	InitWithWriter(&buf)

	zlog.Debug().Msg("dropped")
	zlog.Info().Msg("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"Warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"trace":   zerolog.TraceLevel,
		"off":     zerolog.Disabled,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, Options{Level: "warn"}), "sim")

	l.Info().Msg("dropped")
	l.Warn().Int("ticks", 3).Msg("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "sim", entry["component"])
	assert.Equal(t, float64(3), entry["ticks"])
	assert.Contains(t, entry, "time")
}

func TestNewPrettyWithFile(t *testing.T) {
	var console, file bytes.Buffer
	l := New(&console, Options{Level: "debug", Pretty: true, File: &file})

	l.Debug().Str("stage", "upper").Msg("staging")

	assert.Contains(t, console.String(), "staging")
	assert.Contains(t, file.String(), "stage=upper")
	assert.NotContains(t, file.String(), "\x1b[", "file output must not be coloured")
}

func TestSampled(t *testing.T) {
	var buf bytes.Buffer
	l := Sampled(New(&buf, Options{Level: "debug"}))

	for i := 0; i < 50; i++ {
		l.Warn().Int("i", i).Msg("update failed")
	}

	n := strings.Count(buf.String(), "update failed")
	assert.GreaterOrEqual(t, n, 5)
	assert.Less(t, n, 50)
	assert.Contains(t, buf.String(), `"sampled":true`)
}

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New("info", "json", &buf)

	logger.Info().Str("op", "disable").Msg("lock written")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"op":"disable"`)
	assert.Contains(t, out, `"message":"lock written"`)
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)

	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept")
}

func TestNew_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New("debug", "console", &buf)

	logger.Debug().Msg("hello")

	// Console format is human-oriented, not JSON.
	out := buf.String()
	require.NotEmpty(t, out)
	assert.False(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
}

func TestNop_Discards(t *testing.T) {
	logger := Nop()
	// Must not panic and must be disabled.
	logger.Error().Msg("nowhere")
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"off":     levelSilent,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, FormatJSON)
	logger.Debug("hidden")
	logger.Info("migrated", "version", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "migrated", rec["msg"])
	assert.Equal(t, float64(3), rec["version"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, slog.LevelWarn, FormatText).Info("quiet")
	assert.Empty(t, buf.String())

	New(&buf, slog.LevelWarn, "").Warn("loud", "table", "backlog")
	assert.Contains(t, buf.String(), "msg=loud")
	assert.Contains(t, buf.String(), "table=backlog")
}

func TestNewDiscard(t *testing.T) {
	logger := NewDiscard()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
}

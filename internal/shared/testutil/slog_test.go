package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records and attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("ranked", slog.Int("entries", 3))
		logger.Error("failed", slog.String("code", "x"))

		require.Equal(t, 2, handler.Count())
		assert.True(t, handler.ContainsMessage("ranked"))
		assert.True(t, handler.ContainsAttr("code", "x"))
		assert.False(t, handler.ContainsMessage("missing"))
	})

	t.Run("derived loggers share the sink", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.With("component", "screener").Info("hello")

		assert.Equal(t, 1, handler.Count())
		assert.True(t, handler.ContainsAttr("component", "screener"))
	})

	t.Run("filters by level and clears", func(t *testing.T) {
		logger, handler := NewTestLogger(t)
		logger.Debug("d")
		logger.Info("i")
		logger.Warn("w")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 1)
		AssertLogContains(t, handler, slog.LevelInfo, "i")
		AssertNoErrors(t, handler)

		handler.Clear()
		assert.Zero(t, handler.Count())
	})
}

func TestLoadPanel(t *testing.T) {
	ds := LoadPanel(t, SamplePanelCSV)
	assert.Equal(t, 8, ds.Len())
	assert.Len(t, ds.InstrumentIDs(), 3)
}

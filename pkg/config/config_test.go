package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Store.DefaultLimit)
	assert.Equal(t, 10000, cfg.Store.MaxLimit)
	assert.Equal(t, 10, cfg.Poller.MaxAttempts)
	assert.Equal(t, 30, cfg.Poller.BackfillMaxAttempts)
	assert.Equal(t, time.Second, cfg.Poller.PollInterval())
	assert.Equal(t, 60*time.Second, cfg.Analysis.DedupWindow())
	assert.Equal(t, 7, cfg.Analysis.WindowDays)
	assert.Equal(t, "createTreatment", cfg.Analysis.EventMarker)
	assert.True(t, cfg.Analysis.RequireRedaction)
	assert.Equal(t, "*", cfg.Analysis.RedactionMarker)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOGSIGHT_POLLER_MAXATTEMPTS", "5")
	t.Setenv("LOGSIGHT_ANALYSIS_WINDOWDAYS", "14")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Poller.MaxAttempts)
	assert.Equal(t, 14, cfg.Analysis.WindowDays)
}

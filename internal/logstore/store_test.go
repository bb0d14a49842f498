package logstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logsight/backend/internal/model"
)

func TestEpochSeconds(t *testing.T) {
	// The same instant as epoch seconds and epoch milliseconds.
	assert.Equal(t, int64(1787961600), EpochSeconds(1787961600))
	assert.Equal(t, int64(1787961600), EpochSeconds(1787961600000))
	assert.Equal(t, int64(0), EpochSeconds(0))
}

func TestLimitsClamp(t *testing.T) {
	limits := DefaultLimits()
	assert.Equal(t, DefaultLimit, limits.Clamp(0))
	assert.Equal(t, DefaultLimit, limits.Clamp(-5))
	assert.Equal(t, 500, limits.Clamp(500))
	assert.Equal(t, MaxLimit, limits.Clamp(MaxLimit+1))
}

func TestLimitsClampConfiguredBounds(t *testing.T) {
	limits := Limits{Default: 200, Max: 500}
	assert.Equal(t, 200, limits.Clamp(0))
	assert.Equal(t, 300, limits.Clamp(300))
	assert.Equal(t, 500, limits.Clamp(501))
}

func TestLimitsZeroValueFallsBackToDefaults(t *testing.T) {
	var limits Limits
	assert.Equal(t, DefaultLimit, limits.Clamp(0))
	assert.Equal(t, MaxLimit, limits.Clamp(MaxLimit+1))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusComplete.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.False(t, StatusScheduled.Terminal())
}

func TestToStatusOutputCarriesBothShapes(t *testing.T) {
	out := toStatusOutput(queryStatusResponse{
		Status: "Complete",
		Results: [][]model.Field{
			{{Field: "@timestamp", Value: "2026-08-29 10:00:00.000"}, {Field: "@message", Value: "hi"}},
		},
		Rows: []map[string]string{
			{"timestamp": "2026-08-29T10:00:01Z", "message": "flat"},
		},
	})

	assert.Equal(t, StatusComplete, out.Status)
	require.Len(t, out.Records, 2)
	assert.True(t, out.Records[0].IsFieldRecord())
	assert.True(t, out.Records[1].IsFlatRecord())
}

func TestToStatusOutputFailure(t *testing.T) {
	out := toStatusOutput(queryStatusResponse{
		Status:     "Failed",
		Diagnostic: "query expression invalid",
	})

	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "query expression invalid", out.Diagnostic)
	assert.Empty(t, out.Records)
}

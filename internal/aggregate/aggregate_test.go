package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logsight/backend/internal/model"
)

var now = time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

func errorRecord(ts time.Time) model.LogRecord {
	return model.LogRecord{Timestamp: ts, Message: "boom error", Severity: model.SeverityError}
}

func event(subject string, ts time.Time) model.Event {
	return model.Event{Timestamp: ts, SubjectKey: subject, Kind: model.KindTreatmentCreated}
}

func TestDailyBucketsContiguousAndZeroed(t *testing.T) {
	buckets := Daily(nil, nil, 7, time.Minute, now)
	require.Len(t, buckets, 7)

	assert.Equal(t, "2026-08-24", buckets[0].Date)
	assert.Equal(t, "2026-08-30", buckets[6].Date)
	for _, b := range buckets {
		assert.Zero(t, b.EventCount)
		assert.Zero(t, b.ErrorCount)
	}
}

func TestDailyErrorTotalInvariant(t *testing.T) {
	records := []model.LogRecord{
		errorRecord(now.Add(-2 * time.Hour)),
		errorRecord(now.Add(-2 * time.Hour)), // same line twice: both count
		errorRecord(now.AddDate(0, 0, -3)),
		errorRecord(now.AddDate(0, 0, -20)), // outside window
		{Timestamp: now, Message: "fine", Severity: model.SeverityInfo},
	}

	buckets := Daily(records, nil, 7, time.Minute, now)

	inWindow := 0
	for _, rec := range records {
		if rec.Severity != model.SeverityError {
			continue
		}
		if !rec.Day().Before(now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -6)) {
			inWindow++
		}
	}

	total := 0
	for _, b := range buckets {
		total += b.ErrorCount
	}
	assert.Equal(t, inWindow, total)
	assert.Equal(t, 3, total)
}

func TestDailyEventsDedupedPerSubjectPerDay(t *testing.T) {
	day := now.AddDate(0, 0, -1).Truncate(24 * time.Hour)

	events := []model.Event{
		event("Jo** Sm**", day.Add(10*time.Hour)),
		event("Jo** Sm**", day.Add(10*time.Hour+10*time.Second)), // burst duplicate
		event("Jo** Sm**", day.Add(12*time.Hour)),                // separate burst, same day
		event("Al** Br**", day.Add(10*time.Hour)),
	}

	buckets := Daily(nil, events, 7, time.Minute, now)

	var yesterday model.DailyBucket
	for _, b := range buckets {
		if b.Date == day.Format("2006-01-02") {
			yesterday = b
		}
	}
	assert.Equal(t, 3, yesterday.EventCount)
}

func TestDailyBurstAcrossMidnightCountsOnEachDay(t *testing.T) {
	midnight := now.Truncate(24 * time.Hour)

	// 30 seconds apart, but on opposite sides of midnight: one event per day,
	// because dedup is applied per subject per day, never globally.
	events := []model.Event{
		event("Jo** Sm**", midnight.Add(-15*time.Second)),
		event("Jo** Sm**", midnight.Add(15*time.Second)),
	}

	buckets := Daily(nil, events, 7, time.Minute, now)

	total := 0
	for _, b := range buckets {
		total += b.EventCount
	}
	assert.Equal(t, 2, total)
}

func TestDailyIgnoresEventsOutsideWindow(t *testing.T) {
	events := []model.Event{
		event("Jo** Sm**", now.AddDate(0, 0, -30)),
	}

	buckets := Daily(nil, events, 7, time.Minute, now)
	for _, b := range buckets {
		assert.Zero(t, b.EventCount)
	}
}

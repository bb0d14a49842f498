package aggregate

import (
	"time"

	"github.com/logsight/backend/internal/dedup"
	"github.com/logsight/backend/internal/model"
)

// DefaultWindowDays is the trailing window shown on the dashboard.
const DefaultWindowDays = 7

type groupKey struct {
	subject string
	day     time.Time
}

// Daily buckets error counts and event counts into windowDays contiguous UTC
// calendar days ending at now's day. A record's bucket is decided by its own
// timestamp, not by ingestion time.
//
// Error counts are raw: every error-severity record in the window increments
// its day, with no deduplication. Event counts are deduplicated per subject
// per day with the burst window before summing, so a subject's bursts that
// span a midnight boundary count once on each side. This asymmetry is the
// observed product behavior and is kept on purpose.
func Daily(records []model.LogRecord, events []model.Event, windowDays int, dedupWindow time.Duration, now time.Time) []model.DailyBucket {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	last := now.UTC().Truncate(24 * time.Hour)
	first := last.AddDate(0, 0, -(windowDays - 1))

	buckets := make([]model.DailyBucket, windowDays)
	index := make(map[time.Time]int, windowDays)
	for i := 0; i < windowDays; i++ {
		day := first.AddDate(0, 0, i)
		buckets[i] = model.DailyBucket{Date: day.Format("2006-01-02")}
		index[day] = i
	}

	for _, rec := range records {
		if rec.Severity != model.SeverityError {
			continue
		}
		if i, ok := index[rec.Day()]; ok {
			buckets[i].ErrorCount++
		}
	}

	groups := make(map[groupKey][]model.Event)
	for _, e := range events {
		day := e.Day()
		if _, ok := index[day]; !ok {
			continue
		}
		key := groupKey{subject: e.SubjectKey, day: day}
		groups[key] = append(groups[key], e)
	}

	for key, group := range groups {
		kept := dedup.CollapseGroup(group, dedupWindow)
		buckets[index[key.day]].EventCount += len(kept)
	}

	return buckets
}

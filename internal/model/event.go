package model

import "time"

// KindTreatmentCreated tags events extracted from treatment-creation log lines.
const KindTreatmentCreated = "treatment_created"

// Event is a domain event derived from one or more log records. SubjectKey is
// the partially masked identifier pulled out of the message text; an extracted
// subject without at least one redaction marker never becomes an Event.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	SubjectKey string    `json:"subject_key"`
	Kind       string    `json:"kind"`
}

// Day returns the UTC calendar day the event belongs to.
func (e Event) Day() time.Time {
	return e.Timestamp.UTC().Truncate(24 * time.Hour)
}

// DailyBucket is one day of the trailing aggregation window. Buckets are
// contiguous, gap-free, and zero-initialized before accumulation.
type DailyBucket struct {
	Date       string `json:"date"` // YYYY-MM-DD, UTC
	EventCount int    `json:"event_count"`
	ErrorCount int    `json:"error_count"`
}

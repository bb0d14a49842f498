package models

import "time"

// AnalysisRun is one row of the run history: the bookkeeping the service
// keeps about each analysis request. The pipeline itself stays stateless;
// only these summaries are persisted.
type AnalysisRun struct {
	ID           string    `json:"id"`
	StoreID      string    `json:"store_id"`
	StartTime    int64     `json:"start_time"`
	EndTime      int64     `json:"end_time"`
	VersionTag   string    `json:"version_tag"`
	SubjectCount int       `json:"subject_count"`
	Outcome      string    `json:"outcome"`
	RecordCount  int       `json:"record_count"`
	EventCount   int       `json:"event_count"`
	ErrorCount   int       `json:"error_count"`
	LatencyMS    int       `json:"latency_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

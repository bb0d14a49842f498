package logstore

import (
	"context"

	"github.com/logsight/backend/internal/model"
)

// Status reported by the store for an asynchronous query.
type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusRunning   Status = "Running"
	StatusComplete  Status = "Complete"
	StatusFailed    Status = "Failed"
)

// Terminal reports whether the store will never change this status again.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

const (
	// DefaultLimit is the result limit used when the caller does not set one.
	DefaultLimit = 1000
	// MaxLimit is the hard ceiling bounding result-set memory.
	MaxLimit = 10000

	// epochMillisFloor disambiguates epoch inputs: values at or above it are
	// milliseconds, below it seconds. It corresponds to 2001-09-09 in
	// milliseconds and the year 33658 in seconds.
	epochMillisFloor = 1_000_000_000_000
)

// StartQueryInput is everything the store needs to schedule a query.
// StartTime and EndTime accept epoch seconds or milliseconds.
type StartQueryInput struct {
	StoreID   string `json:"store_id"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	QueryText string `json:"query_text"`
	Limit     int    `json:"limit"`
}

// StatusOutput is one status poll's result. Records is populated only when
// Status is Complete; Diagnostic only when it is Failed.
type StatusOutput struct {
	Status     Status            `json:"status"`
	Records    []model.RawRecord `json:"records,omitempty"`
	Diagnostic string            `json:"diagnostic,omitempty"`
}

// Store is the external log store boundary. StartQuery schedules a query and
// returns its ID; QueryStatus reports progress and, on completion, the raw
// result rows. Implementations own all blocking I/O in the system.
type Store interface {
	StartQuery(ctx context.Context, input StartQueryInput) (string, error)
	QueryStatus(ctx context.Context, queryID string) (*StatusOutput, error)
}

// EpochSeconds converts an epoch value that may be seconds or milliseconds
// into seconds, deciding by magnitude.
func EpochSeconds(v int64) int64 {
	if v >= epochMillisFloor {
		return v / 1000
	}
	return v
}

// Limits bounds a query's result set: Default applies when the caller sets no
// limit, Max is the hard ceiling. The zero value falls back to the package
// defaults.
type Limits struct {
	Default int
	Max     int
}

func DefaultLimits() Limits {
	return Limits{Default: DefaultLimit, Max: MaxLimit}
}

// Clamp applies the default and the ceiling to a caller limit.
func (l Limits) Clamp(limit int) int {
	def, max := l.Default, l.Max
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}

	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

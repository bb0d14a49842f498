package normalize

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logsight/backend/internal/metrics"
	"github.com/logsight/backend/internal/model"
	"github.com/logsight/backend/internal/severity"
	"github.com/logsight/backend/pkg/logger"
)

// Field name sentinels used by the store's column-oriented rows. The flat
// object shape uses the same names without the "@" prefix.
const (
	fieldTimestamp = "@timestamp"
	fieldMessage   = "@message"
	fieldStream    = "@logStream"
)

const (
	// DefaultStream is used when a record carries no stream attribute.
	DefaultStream = "unknown"
	// DefaultMessage is used when a record carries no message, or an empty one.
	DefaultMessage = "No content available"
)

// ErrMalformed marks a raw record that matches neither known shape. The batch
// normalizer skips such records; it never aborts the batch.
var ErrMalformed = errors.New("raw record matches no known shape")

// Timestamp layouts the store is known to emit, beyond RFC 3339.
var sourceLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
}

// Record resolves one raw record into the canonical shape. It is best-effort:
// a missing message or stream gets a sentinel default, an unparseable
// timestamp falls back to ingestion time. It fails only when the record
// carries neither shape of the union.
func Record(raw model.RawRecord, ingested time.Time) (model.LogRecord, error) {
	var ts, msg, stream string

	switch {
	case raw.IsFieldRecord():
		for _, f := range raw.Fields {
			switch f.Field {
			case fieldTimestamp:
				ts = f.Value
			case fieldMessage:
				msg = f.Value
			case fieldStream:
				stream = f.Value
			}
		}
	case raw.IsFlatRecord():
		ts = raw.Flat["timestamp"]
		msg = raw.Flat["message"]
		stream = raw.Flat["logStream"]
		if stream == "" {
			stream = raw.Flat["stream"]
		}
	default:
		return model.LogRecord{}, ErrMalformed
	}

	if msg == "" {
		logger.Debug("Record has no message field, using default")
		msg = DefaultMessage
	}
	if stream == "" {
		stream = DefaultStream
	}

	parsed, ok := parseTimestamp(ts)
	if !ok {
		logger.Debug("Record timestamp unparseable, using ingestion time",
			zap.String("timestamp", ts),
		)
		parsed = ingested
	}

	return model.LogRecord{
		Timestamp: parsed,
		Message:   msg,
		Stream:    stream,
		Severity:  severity.Classify(msg),
	}, nil
}

// Batch normalizes a whole result set, preserving input order. Malformed
// records are skipped with a diagnostic and do not abort the batch.
func Batch(raws []model.RawRecord, ingested time.Time) []model.LogRecord {
	records := make([]model.LogRecord, 0, len(raws))
	skipped := 0

	for _, raw := range raws {
		rec, err := Record(raw, ingested)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		metrics.RecordsMalformed.Add(float64(skipped))
		logger.Warn("Skipped malformed records during normalization",
			zap.Int("skipped", skipped),
			zap.Int("total", len(raws)),
		)
	}

	return records
}

// RewriteTimestamp converts the store's space-separated timestamp format
// ("2026-08-30 12:34:56.789") into a strict RFC 3339 UTC form. Timestamps
// already carrying a "T" separator pass through unchanged.
func RewriteTimestamp(ts string) string {
	if !strings.Contains(ts, " ") {
		return ts
	}
	rewritten := strings.Replace(ts, " ", "T", 1)
	if !strings.HasSuffix(rewritten, "Z") && !strings.Contains(rewritten, "+") {
		rewritten += "Z"
	}
	return rewritten
}

func parseTimestamp(ts string) (time.Time, bool) {
	if ts == "" {
		return time.Time{}, false
	}

	ts = RewriteTimestamp(ts)
	for _, layout := range sourceLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

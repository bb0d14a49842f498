package model

import "time"

// Severity is the classification assigned to every canonical log record.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Field is one name/value pair of a column-oriented result row. Field names
// coming from the store are prefixed with "@" (e.g. "@timestamp").
type Field struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// RawRecord is the union of the two row shapes the log store returns:
// a column-oriented list of fields, or a flat object with named attributes.
// Exactly one of the two members is populated; the normalizer resolves the
// shape once and nothing downstream inspects it again.
type RawRecord struct {
	Fields []Field           `json:"fields,omitempty"`
	Flat   map[string]string `json:"flat,omitempty"`
}

// IsFieldRecord reports whether the record carries the column-oriented shape.
func (r RawRecord) IsFieldRecord() bool {
	return len(r.Fields) > 0
}

// IsFlatRecord reports whether the record carries the flat object shape.
func (r RawRecord) IsFlatRecord() bool {
	return r.Flat != nil
}

// LogRecord is the canonical record every raw row is normalized into.
// Timestamp is always valid (defaulted to ingestion time when the source
// value is unparseable) and Severity is always set after classification.
type LogRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Stream    string    `json:"stream,omitempty"`
	Severity  Severity  `json:"severity"`
}

// Day returns the UTC calendar day the record belongs to.
func (r LogRecord) Day() time.Time {
	return r.Timestamp.UTC().Truncate(24 * time.Hour)
}

package extract

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/logsight/backend/internal/model"
	"github.com/logsight/backend/pkg/logger"
)

// Config controls which log lines count as treatment-creation events.
// RequireRedaction keeps the masked-subject validity check switchable: with it
// on, an extracted subject must contain at least one RedactionMarker rune or
// the candidate is silently dropped.
type Config struct {
	Marker           string
	RequireRedaction bool
	RedactionMarker  string
}

func DefaultConfig() Config {
	return Config{
		Marker:           "createTreatment",
		RequireRedaction: true,
		RedactionMarker:  "*",
	}
}

// Extractor scans normalized records for the event marker and pulls the
// subject out of the message text.
type Extractor struct {
	cfg     Config
	subject *regexp.Regexp
}

func New(cfg Config) *Extractor {
	if cfg.Marker == "" {
		cfg.Marker = "createTreatment"
	}
	if cfg.RedactionMarker == "" {
		cfg.RedactionMarker = "*"
	}

	// The subject follows the marker after an English preposition; the
	// matching rule is deliberately confined to this package so it can be
	// swapped without touching dedup or aggregation.
	pattern := regexp.QuoteMeta(cfg.Marker) + `.*\bfor\s+(.+?)\s*$`

	return &Extractor{
		cfg:     cfg,
		subject: regexp.MustCompile(pattern),
	}
}

// Events returns one candidate event per record whose message carries the
// marker and yields a valid subject. Timestamps are copied from the source
// records.
func (x *Extractor) Events(records []model.LogRecord) []model.Event {
	var events []model.Event

	for _, rec := range records {
		if !strings.Contains(rec.Message, x.cfg.Marker) {
			continue
		}

		m := x.subject.FindStringSubmatch(rec.Message)
		if m == nil {
			logger.Debug("Marker present but subject pattern did not match",
				zap.String("message", rec.Message),
			)
			continue
		}

		subject := m[1]
		if x.cfg.RequireRedaction && !strings.Contains(subject, x.cfg.RedactionMarker) {
			// Unredacted subjects are treated as non-events, not errors.
			logger.Debug("Discarding unredacted subject")
			continue
		}

		events = append(events, model.Event{
			Timestamp:  rec.Timestamp,
			SubjectKey: subject,
			Kind:       model.KindTreatmentCreated,
		})
	}

	return events
}

package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/logsight/backend/internal/model"
)

// Predicates is the composable filter set applied over a normalized batch.
// All populated predicates must hold for a record to pass (conjunction);
// zero values mean "no constraint". Application order does not matter.
type Predicates struct {
	Search              string           `json:"search,omitempty"`
	Severities          []model.Severity `json:"severities,omitempty"`
	From                time.Time        `json:"from,omitempty"`
	To                  time.Time        `json:"to,omitempty"`
	Streams             []string         `json:"streams,omitempty"`
	DropExactDuplicates bool             `json:"drop_exact_duplicates,omitempty"`
}

// Apply filters the full batch from scratch. The input is re-sorted timestamp
// descending before predicates run, so the output order is deterministic and
// independent of the raw batch's insertion order. The input slice is not
// mutated.
func Apply(records []model.LogRecord, p Predicates) []model.LogRecord {
	sorted := make([]model.LogRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	severities := toSet(severityStrings(p.Severities))
	streams := toSet(p.Streams)
	search := strings.ToLower(p.Search)

	seen := make(map[string]struct{})
	out := make([]model.LogRecord, 0, len(sorted))

	for _, rec := range sorted {
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.Message), search) &&
			!strings.Contains(strings.ToLower(rec.Stream), search) {
			continue
		}
		if len(severities) > 0 {
			if _, ok := severities[string(rec.Severity)]; !ok {
				continue
			}
		}
		if !p.From.IsZero() && rec.Timestamp.Before(p.From) {
			continue
		}
		if !p.To.IsZero() && rec.Timestamp.After(p.To) {
			continue
		}
		if len(streams) > 0 {
			if _, ok := streams[rec.Stream]; !ok {
				continue
			}
		}
		if p.DropExactDuplicates {
			key := rec.Message + "\x00" + rec.Stream
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, rec)
	}

	return out
}

func severityStrings(severities []model.Severity) []string {
	out := make([]string, 0, len(severities))
	for _, s := range severities {
		out = append(out, string(s))
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

package dedup

import (
	"sort"
	"time"

	"github.com/logsight/backend/internal/model"
)

// DefaultWindow is the burst window within which repeated emissions for the
// same subject collapse into one logical event.
const DefaultWindow = 60 * time.Second

// Collapse removes near-simultaneous duplicate events per subject. Candidates
// are grouped by subject key, each group is walked in timestamp order keeping
// an event only when it lands at least window after the last kept one, and
// the survivors are returned sorted by timestamp descending.
//
// The whole group must be visible before the walk starts; a streaming variant
// would decide about an early event before seeing a later one in the same
// group. Collapse is idempotent for a fixed window.
func Collapse(events []model.Event, window time.Duration) []model.Event {
	if len(events) == 0 {
		return nil
	}

	groups := make(map[string][]model.Event)
	for _, e := range events {
		groups[e.SubjectKey] = append(groups[e.SubjectKey], e)
	}

	kept := make([]model.Event, 0, len(groups))
	for _, group := range groups {
		kept = append(kept, CollapseGroup(group, window)...)
	}

	sort.Slice(kept, func(i, j int) bool {
		if !kept[i].Timestamp.Equal(kept[j].Timestamp) {
			return kept[i].Timestamp.After(kept[j].Timestamp)
		}
		return kept[i].SubjectKey < kept[j].SubjectKey
	})

	return kept
}

// CollapseGroup collapses one subject's candidates. The first event is always
// kept; each later one survives only if it lands at least window after the
// last kept event. An event exactly on the window boundary is not a
// duplicate, so two events exactly window apart both survive. Results stay in
// ascending timestamp order.
func CollapseGroup(events []model.Event, window time.Duration) []model.Event {
	if len(events) == 0 {
		return nil
	}

	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	kept := []model.Event{sorted[0]}
	lastKept := sorted[0].Timestamp

	for _, e := range sorted[1:] {
		if e.Timestamp.Sub(lastKept) >= window {
			kept = append(kept, e)
			lastKept = e.Timestamp
		}
	}

	return kept
}

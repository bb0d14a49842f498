package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logsight/backend/internal/model"
)

var t0 = time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

func event(subject string, offset time.Duration) model.Event {
	return model.Event{
		Timestamp:  t0.Add(offset),
		SubjectKey: subject,
		Kind:       model.KindTreatmentCreated,
	}
}

func TestCollapseEmpty(t *testing.T) {
	assert.Nil(t, Collapse(nil, DefaultWindow))
}

func TestCollapseBurstPerSubject(t *testing.T) {
	events := []model.Event{
		event("Jo** Sm**", 0),
		event("Jo** Sm**", 10*time.Second),
		event("Al** Br**", 10*time.Second),
	}

	result := Collapse(events, 60*time.Second)
	require.Len(t, result, 2)

	subjects := []string{result[0].SubjectKey, result[1].SubjectKey}
	assert.Contains(t, subjects, "Jo** Sm**")
	assert.Contains(t, subjects, "Al** Br**")
}

func TestCollapseWindowBoundary(t *testing.T) {
	w := 60 * time.Second

	// Exactly w apart: not a duplicate, both kept.
	exact := Collapse([]model.Event{
		event("Jo** Sm**", 0),
		event("Jo** Sm**", w),
	}, w)
	assert.Len(t, exact, 2)

	// One millisecond inside the window: collapsed.
	inside := Collapse([]model.Event{
		event("Jo** Sm**", 0),
		event("Jo** Sm**", w-time.Millisecond),
	}, w)
	assert.Len(t, inside, 1)
}

func TestCollapseIdempotent(t *testing.T) {
	w := 60 * time.Second
	events := []model.Event{
		event("Jo** Sm**", 0),
		event("Jo** Sm**", 30*time.Second),
		event("Jo** Sm**", 90*time.Second),
		event("Al** Br**", 5*time.Second),
		event("Al** Br**", 200*time.Second),
	}

	once := Collapse(events, w)
	twice := Collapse(once, w)
	assert.Equal(t, once, twice)
}

func TestCollapseKeepsBurstStartsAcrossLongRun(t *testing.T) {
	// Events every 30s for 5 minutes: the walk keeps one event per 60s of
	// elapsed time from the last kept one, not just the first overall.
	var events []model.Event
	for i := 0; i < 10; i++ {
		events = append(events, event("Jo** Sm**", time.Duration(i)*30*time.Second))
	}

	result := Collapse(events, 60*time.Second)
	assert.Len(t, result, 5)
}

func TestCollapseSortsDescending(t *testing.T) {
	events := []model.Event{
		event("Al** Br**", 0),
		event("Jo** Sm**", 2*time.Minute),
		event("Ca** We**", time.Minute),
	}

	result := Collapse(events, 10*time.Second)
	require.Len(t, result, 3)
	assert.Equal(t, "Jo** Sm**", result[0].SubjectKey)
	assert.Equal(t, "Ca** We**", result[1].SubjectKey)
	assert.Equal(t, "Al** Br**", result[2].SubjectKey)
}

func TestCollapseDeterministicOnTimestampTies(t *testing.T) {
	events := []model.Event{
		event("B** B**", 0),
		event("A** A**", 0),
	}

	first := Collapse(events, time.Minute)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Collapse(events, time.Minute))
	}
	assert.Equal(t, "A** A**", first[0].SubjectKey)
}

func TestCollapseGroupAscendingOrder(t *testing.T) {
	events := []model.Event{
		event("Jo** Sm**", 5*time.Minute),
		event("Jo** Sm**", 0),
		event("Jo** Sm**", 10*time.Minute),
	}

	kept := CollapseGroup(events, time.Minute)
	require.Len(t, kept, 3)
	assert.True(t, kept[0].Timestamp.Before(kept[1].Timestamp))
	assert.True(t, kept[1].Timestamp.Before(kept[2].Timestamp))
}

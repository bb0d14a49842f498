package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logsight/backend/internal/logstore"
	"github.com/logsight/backend/internal/model"
)

// fakeStore replays a scripted status sequence; the final entry repeats if
// polling continues past the script.
type fakeStore struct {
	startErr  error
	statuses  []logstore.StatusOutput
	statusErr error

	startCalls  int
	statusCalls int
}

func (f *fakeStore) StartQuery(ctx context.Context, input logstore.StartQueryInput) (string, error) {
	f.startCalls++
	if f.startErr != nil {
		return "", f.startErr
	}
	return "query-1", nil
}

func (f *fakeStore) QueryStatus(ctx context.Context, queryID string) (*logstore.StatusOutput, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	i := f.statusCalls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	out := f.statuses[i]
	return &out, nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func running() logstore.StatusOutput {
	return logstore.StatusOutput{Status: logstore.StatusRunning}
}

func TestRunCompletesAfterExactPollCount(t *testing.T) {
	rows := []model.RawRecord{{Flat: map[string]string{"message": "hi"}}}
	store := &fakeStore{statuses: []logstore.StatusOutput{
		running(),
		running(),
		{Status: logstore.StatusComplete, Records: rows},
	}}

	p := New(store, Config{MaxAttempts: 10}, WithSleep(noSleep))
	got, err := p.Run(context.Background(), logstore.StartQueryInput{})

	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, 3, store.statusCalls)
	assert.Equal(t, 1, store.startCalls)
}

func TestRunTimesOutAtCeiling(t *testing.T) {
	store := &fakeStore{statuses: []logstore.StatusOutput{running()}}

	p := New(store, Config{MaxAttempts: 10}, WithSleep(noSleep))
	_, err := p.Run(context.Background(), logstore.StartQueryInput{})

	assert.ErrorIs(t, err, ErrQueryTimeout)
	assert.Equal(t, 10, store.statusCalls)
}

func TestRunSurfacesStoreFailure(t *testing.T) {
	store := &fakeStore{statuses: []logstore.StatusOutput{
		running(),
		{Status: logstore.StatusFailed, Diagnostic: "malformed query expression"},
	}}

	p := New(store, Config{MaxAttempts: 10}, WithSleep(noSleep))
	_, err := p.Run(context.Background(), logstore.StartQueryInput{})

	var failed *QueryFailedError
	require.ErrorAs(t, err, &failed)
	assert.Contains(t, failed.Diagnostic, "malformed query expression")
}

func TestRunSubmitFailureIsFatalAndNotRetried(t *testing.T) {
	store := &fakeStore{startErr: errors.New("store rejected submit")}

	p := New(store, Config{MaxAttempts: 10}, WithSleep(noSleep))
	_, err := p.Run(context.Background(), logstore.StartQueryInput{})

	require.Error(t, err)
	assert.Equal(t, 1, store.startCalls)
	assert.Zero(t, store.statusCalls)
}

func TestRunCancellationReturnsNoPartialResults(t *testing.T) {
	store := &fakeStore{statuses: []logstore.StatusOutput{running()}}
	ctx, cancel := context.WithCancel(context.Background())

	cancelAfter := 3
	p := New(store, Config{MaxAttempts: 100}, WithSleep(func(ctx context.Context, d time.Duration) error {
		if store.statusCalls >= cancelAfter {
			cancel()
		}
		return ctx.Err()
	}))

	rows, err := p.Run(ctx, logstore.StartQueryInput{})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, rows)
}

func TestRunEmptyCompleteIsSuccess(t *testing.T) {
	store := &fakeStore{statuses: []logstore.StatusOutput{
		{Status: logstore.StatusComplete},
	}}

	p := New(store, Config{MaxAttempts: 10}, WithSleep(noSleep))
	rows, err := p.Run(context.Background(), logstore.StartQueryInput{})

	// A zero-length result is a valid completed outcome, not a timeout.
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRunReportsProgress(t *testing.T) {
	store := &fakeStore{statuses: []logstore.StatusOutput{
		running(),
		{Status: logstore.StatusComplete},
	}}

	var seen []Session
	p := New(store, Config{MaxAttempts: 10},
		WithSleep(noSleep),
		WithProgress(func(s Session) { seen = append(seen, s) }),
	)

	_, err := p.Run(context.Background(), logstore.StartQueryInput{})
	require.NoError(t, err)

	// Submit snapshot, one running poll, terminal snapshot.
	require.Len(t, seen, 3)
	assert.Equal(t, SessionRunning, seen[0].Status)
	assert.Zero(t, seen[0].Attempts)
	assert.Equal(t, SessionRunning, seen[1].Status)
	assert.Equal(t, 1, seen[1].Attempts)
	assert.Equal(t, SessionComplete, seen[2].Status)
	assert.Equal(t, 2, seen[2].Attempts)

	for _, s := range seen {
		assert.Equal(t, "query-1", s.QueryID)
	}
}

func TestRunStatusSequenceForwardOnly(t *testing.T) {
	store := &fakeStore{statuses: []logstore.StatusOutput{
		running(),
		{Status: logstore.StatusComplete},
	}}

	var statuses []SessionStatus
	p := New(store, Config{MaxAttempts: 10},
		WithSleep(noSleep),
		WithProgress(func(s Session) { statuses = append(statuses, s.Status) }),
	)

	_, err := p.Run(context.Background(), logstore.StartQueryInput{})
	require.NoError(t, err)

	terminalSeen := false
	for _, s := range statuses {
		if terminalSeen {
			t.Fatalf("status reported after terminal state: %v", statuses)
		}
		if s != SessionRunning {
			terminalSeen = true
		}
	}
	assert.True(t, terminalSeen)
}

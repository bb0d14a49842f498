package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/logsight/backend/internal/logstore"
	"github.com/logsight/backend/internal/model"
	"github.com/logsight/backend/pkg/logger"
)

// ErrQueryTimeout is returned once the polling attempt ceiling is exhausted
// with the query still running. It is distinct from QueryFailedError so a
// caller can re-submit with a narrower time range.
var ErrQueryTimeout = errors.New("log store query timed out")

// QueryFailedError carries the store's own diagnostic for a query the store
// reported as failed. It is never retried automatically.
type QueryFailedError struct {
	Diagnostic string
}

func (e *QueryFailedError) Error() string {
	if e.Diagnostic == "" {
		return "log store reported query failure"
	}
	return fmt.Sprintf("log store reported query failure: %s", e.Diagnostic)
}

// SessionStatus is the poller-side lifecycle of one query. Transitions only
// move forward: running ends in exactly one of the three terminal states.
type SessionStatus string

const (
	SessionRunning  SessionStatus = "running"
	SessionComplete SessionStatus = "complete"
	SessionFailed   SessionStatus = "failed"
	SessionTimedOut SessionStatus = "timed_out"
)

// Session is a snapshot of one in-flight query. It is owned exclusively by
// the call that created it and discarded once a terminal status is returned.
type Session struct {
	QueryID   string        `json:"query_id"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Attempts  int           `json:"attempts"`
}

// Config bounds the polling loop.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		Interval:    time.Second,
		MaxAttempts: 10,
	}
}

// Option adjusts a Poller at construction.
type Option func(*Poller)

// WithSleep replaces the real timer, letting tests drive the loop without
// wall-clock delays. The function must honor ctx cancellation.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

// WithProgress registers a callback invoked with a session snapshot after the
// submit and after every poll. The callback must not retain the snapshot's
// address.
func WithProgress(fn func(Session)) Option {
	return func(p *Poller) {
		p.progress = fn
	}
}

// Poller drives one asynchronous store query to a terminal state with
// fixed-interval polling under a bounded attempt budget.
type Poller struct {
	store    logstore.Store
	cfg      Config
	sleep    func(ctx context.Context, d time.Duration) error
	progress func(Session)
}

func New(store logstore.Store, cfg Config, opts ...Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}

	p := &Poller{
		store: store,
		cfg:   cfg,
		sleep: sleepWithTimer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run submits the query and polls until it is complete, failed, timed out, or
// ctx is cancelled. A submit failure is immediately fatal; the submit is
// never re-issued. On cancellation no partial results are returned.
func (p *Poller) Run(ctx context.Context, input logstore.StartQueryInput) ([]model.RawRecord, error) {
	queryID, err := p.store.StartQuery(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to submit query: %w", err)
	}

	session := Session{
		QueryID:   queryID,
		Status:    SessionRunning,
		StartedAt: time.Now(),
	}
	p.report(session)

	logger.Info("Polling query",
		zap.String("query_id", queryID),
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("max_attempts", p.cfg.MaxAttempts),
	)

	for session.Attempts < p.cfg.MaxAttempts {
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			return nil, err
		}

		out, err := p.store.QueryStatus(ctx, queryID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll query status: %w", err)
		}
		session.Attempts++

		switch out.Status {
		case logstore.StatusComplete:
			session.Status = SessionComplete
			p.report(session)
			logger.Info("Query complete",
				zap.String("query_id", queryID),
				zap.Int("attempts", session.Attempts),
				zap.Int("records", len(out.Records)),
			)
			return out.Records, nil

		case logstore.StatusFailed:
			session.Status = SessionFailed
			p.report(session)
			logger.Warn("Query failed",
				zap.String("query_id", queryID),
				zap.String("diagnostic", out.Diagnostic),
			)
			return nil, &QueryFailedError{Diagnostic: out.Diagnostic}

		default:
			p.report(session)
		}
	}

	session.Status = SessionTimedOut
	p.report(session)
	logger.Warn("Query timed out",
		zap.String("query_id", queryID),
		zap.Int("attempts", session.Attempts),
	)
	return nil, ErrQueryTimeout
}

func (p *Poller) report(s Session) {
	if p.progress != nil {
		p.progress(s)
	}
}

// sleepWithTimer blocks for d or until ctx is cancelled, without leaking the
// timer in either case.
func sleepWithTimer(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

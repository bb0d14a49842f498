package analysis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logsight/backend/internal/aggregate"
	"github.com/logsight/backend/internal/dedup"
	"github.com/logsight/backend/internal/extract"
	"github.com/logsight/backend/internal/filter"
	"github.com/logsight/backend/internal/logstore"
	"github.com/logsight/backend/internal/metrics"
	"github.com/logsight/backend/internal/model"
	"github.com/logsight/backend/internal/normalize"
	"github.com/logsight/backend/internal/poller"
	"github.com/logsight/backend/internal/storage/models"
	"github.com/logsight/backend/pkg/logger"
	"github.com/logsight/backend/pkg/utils"
)

// Request is one analysis call. StartTime and EndTime accept epoch seconds or
// milliseconds. Filter, when set, narrows only the returned record list; the
// event and error statistics are always computed from the full batch.
type Request struct {
	StoreID    string             `json:"store_id"`
	StartTime  int64              `json:"start_time"`
	EndTime    int64              `json:"end_time"`
	SubjectIDs []string           `json:"subject_ids"`
	VersionTag string             `json:"version_tag"`
	Limit      int                `json:"limit,omitempty"`
	Filter     *filter.Predicates `json:"filter,omitempty"`
}

// Result is the bundle handed to the dashboard.
type Result struct {
	Records      []model.LogRecord   `json:"records"`
	Events       []model.Event       `json:"events"`
	DailyStats   []model.DailyBucket `json:"daily_stats"`
	EventCount   int                 `json:"event_count"`
	ErrorCount   int                 `json:"error_count"`
	WarningCount int                 `json:"warning_count"`
}

// ResultCache is the analysis-bundle cache boundary (implemented by the redis
// client; nil disables caching).
type ResultCache interface {
	GetAnalysis(ctx context.Context, requestHash string, result interface{}) (bool, error)
	SetAnalysis(ctx context.Context, requestHash string, result interface{}, ttl time.Duration) error
	InvalidateAll(ctx context.Context) error
}

// RunStore persists run history (implemented by the sqlite client; nil
// disables history).
type RunStore interface {
	InsertAnalysisRun(run *models.AnalysisRun) error
	ListAnalysisRuns(limit int) ([]models.AnalysisRun, error)
}

// Config carries every tunable of the pipeline.
type Config struct {
	PollInterval        time.Duration
	MaxAttempts         int
	BackfillMaxAttempts int
	// BackfillThreshold is the time-range size beyond which the larger
	// backfill attempt budget applies.
	BackfillThreshold time.Duration
	Limits            logstore.Limits
	DedupWindow       time.Duration
	WindowDays        int
	Extract           extract.Config
	CacheTTL          time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:        time.Second,
		MaxAttempts:         10,
		BackfillMaxAttempts: 30,
		BackfillThreshold:   24 * time.Hour,
		Limits:              logstore.DefaultLimits(),
		DedupWindow:         dedup.DefaultWindow,
		WindowDays:          aggregate.DefaultWindowDays,
		Extract:             extract.DefaultConfig(),
		CacheTTL:            5 * time.Minute,
	}
}

// Engine runs the whole pipeline: query, poll, normalize, classify, extract,
// dedup, aggregate. One store query slot is consumed per uncached run.
type Engine struct {
	store     logstore.Store
	cache     ResultCache
	history   RunStore
	extractor *extract.Extractor
	cfg       Config
	now       func() time.Time

	pollerOpts []poller.Option
}

func NewEngine(store logstore.Store, cache ResultCache, history RunStore, cfg Config) *Engine {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.BackfillMaxAttempts < cfg.MaxAttempts {
		cfg.BackfillMaxAttempts = cfg.MaxAttempts
	}
	if cfg.DedupWindow <= 0 {
		cfg.DedupWindow = dedup.DefaultWindow
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = aggregate.DefaultWindowDays
	}

	return &Engine{
		store:     store,
		cache:     cache,
		history:   history,
		extractor: extract.New(cfg.Extract),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run executes one analysis request.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	return e.RunWithProgress(ctx, req, nil)
}

// RunWithProgress is Run with a live session-progress callback, used by the
// websocket handler to stream polling state.
func (e *Engine) RunWithProgress(ctx context.Context, req Request, progress func(poller.Session)) (*Result, error) {
	started := e.now()
	runID := uuid.New().String()

	if err := e.validate(&req); err != nil {
		metrics.AnalysisTotal.WithLabelValues(OutcomeValidation).Inc()
		return nil, err
	}

	logger.Info("Running analysis",
		zap.String("run_id", runID),
		zap.String("store_id", req.StoreID),
		zap.Int64("start_time", req.StartTime),
		zap.Int64("end_time", req.EndTime),
		zap.Int("subjects", len(req.SubjectIDs)),
		zap.String("version_tag", req.VersionTag),
	)

	requestHash := hashRequest(req)
	if e.cache != nil && req.Filter == nil {
		var cached Result
		hit, err := e.cache.GetAnalysis(ctx, requestHash, &cached)
		if err != nil {
			logger.Warn("Analysis cache lookup failed", zap.Error(err))
		}
		if hit {
			metrics.CacheHits.Inc()
			logger.Info("Analysis served from cache", zap.String("run_id", runID))
			return &cached, nil
		}
		metrics.CacheMisses.Inc()
	}

	raws, err := e.runQuery(ctx, req, progress)
	if err != nil {
		outcome := Categorize(err)
		metrics.AnalysisTotal.WithLabelValues(outcome).Inc()
		e.recordRun(runID, req, outcome, nil, started)
		return nil, err
	}
	metrics.RecordsFetched.Add(float64(len(raws)))

	result := e.process(raws)
	if req.Filter != nil {
		result.Records = filter.Apply(result.Records, *req.Filter)
	}

	outcome := OutcomeOK
	if len(raws) == 0 {
		// A zero-length result set is a successfully completed query, not an
		// error; callers must be able to tell it apart from a timeout.
		outcome = OutcomeEmpty
	}
	metrics.AnalysisTotal.WithLabelValues(outcome).Inc()
	metrics.AnalysisDuration.Observe(e.now().Sub(started).Seconds())

	if e.cache != nil && req.Filter == nil {
		if err := e.cache.SetAnalysis(ctx, requestHash, result, e.cfg.CacheTTL); err != nil {
			logger.Warn("Failed to cache analysis result", zap.Error(err))
		}
	}
	e.recordRun(runID, req, outcome, result, started)

	logger.Info("Analysis complete",
		zap.String("run_id", runID),
		zap.Int("records", len(result.Records)),
		zap.Int("events", result.EventCount),
		zap.Int("errors", result.ErrorCount),
	)

	return result, nil
}

// InvalidateCache drops every cached bundle. Operators call it after changing
// analysis knobs, since cached results bake in the old extraction and dedup
// settings.
func (e *Engine) InvalidateCache(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.InvalidateAll(ctx)
}

// History lists recent analysis runs.
func (e *Engine) History(limit int) ([]models.AnalysisRun, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.ListAnalysisRuns(limit)
}

func (e *Engine) validate(req *Request) error {
	if req.StoreID == "" {
		return &ValidationError{Field: "store_id", Reason: "must not be empty"}
	}
	if req.StartTime <= 0 {
		return &ValidationError{Field: "start_time", Reason: "must be a positive epoch value"}
	}
	if req.EndTime <= 0 {
		return &ValidationError{Field: "end_time", Reason: "must be a positive epoch value"}
	}

	req.StartTime = logstore.EpochSeconds(req.StartTime)
	req.EndTime = logstore.EpochSeconds(req.EndTime)
	if req.StartTime >= req.EndTime {
		return &ValidationError{Field: "time_range", Reason: "start_time must be before end_time"}
	}

	if len(req.SubjectIDs) == 0 {
		return &ValidationError{Field: "subject_ids", Reason: "at least one subject is required"}
	}
	for _, id := range req.SubjectIDs {
		if strings.TrimSpace(id) == "" {
			return &ValidationError{Field: "subject_ids", Reason: "subject ids must not be blank"}
		}
	}

	req.Limit = e.cfg.Limits.Clamp(req.Limit)
	return nil
}

func (e *Engine) runQuery(ctx context.Context, req Request, progress func(poller.Session)) ([]model.RawRecord, error) {
	pollCfg := poller.Config{
		Interval:    e.cfg.PollInterval,
		MaxAttempts: e.cfg.MaxAttempts,
	}
	rangeSize := time.Duration(req.EndTime-req.StartTime) * time.Second
	if rangeSize > e.cfg.BackfillThreshold {
		pollCfg.MaxAttempts = e.cfg.BackfillMaxAttempts
	}

	opts := e.pollerOpts
	opts = append(opts, poller.WithProgress(func(s poller.Session) {
		if s.Status != poller.SessionRunning {
			metrics.PollAttempts.Observe(float64(s.Attempts))
		}
		if progress != nil {
			progress(s)
		}
	}))
	p := poller.New(e.store, pollCfg, opts...)

	input := logstore.StartQueryInput{
		StoreID:   req.StoreID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		QueryText: buildQueryText(req.SubjectIDs, req.VersionTag, req.Limit),
		Limit:     req.Limit,
	}
	return p.Run(ctx, input)
}

// process is the pure, synchronous half of the pipeline. Everything after the
// poller operates on the in-memory batch only.
func (e *Engine) process(raws []model.RawRecord) *Result {
	now := e.now()
	records := normalize.Batch(raws, now)
	metrics.RecordsNormalized.Add(float64(len(records)))

	var errorCount, warningCount int
	for _, rec := range records {
		switch rec.Severity {
		case model.SeverityError:
			errorCount++
		case model.SeverityWarning:
			warningCount++
		}
	}

	candidates := e.extractor.Events(records)
	metrics.EventsExtracted.Add(float64(len(candidates)))

	deduped := dedup.Collapse(candidates, e.cfg.DedupWindow)
	metrics.EventsAfterDedup.Add(float64(len(deduped)))

	// Daily stats get the raw candidates: dedup happens per subject per day
	// inside the aggregator, never globally before bucketing.
	buckets := aggregate.Daily(records, candidates, e.cfg.WindowDays, e.cfg.DedupWindow, now)

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	return &Result{
		Records:      records,
		Events:       deduped,
		DailyStats:   buckets,
		EventCount:   len(deduped),
		ErrorCount:   errorCount,
		WarningCount: warningCount,
	}
}

func (e *Engine) recordRun(runID string, req Request, outcome string, result *Result, started time.Time) {
	if e.history == nil {
		return
	}

	run := &models.AnalysisRun{
		ID:           runID,
		StoreID:      req.StoreID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		VersionTag:   req.VersionTag,
		SubjectCount: len(req.SubjectIDs),
		Outcome:      outcome,
		LatencyMS:    int(e.now().Sub(started).Milliseconds()),
		CreatedAt:    e.now(),
	}
	if result != nil {
		run.RecordCount = len(result.Records)
		run.EventCount = result.EventCount
		run.ErrorCount = result.ErrorCount
	}

	if err := e.history.InsertAnalysisRun(run); err != nil {
		logger.Warn("Failed to record analysis run", zap.Error(err))
	}
}

// buildQueryText renders the store-specific query expression. The store
// treats it opaquely; the pipeline never parses it back.
func buildQueryText(subjectIDs []string, versionTag string, limit int) string {
	var b strings.Builder
	b.WriteString("fields @timestamp, @message, @logStream")

	var clauses []string
	if versionTag != "" {
		clauses = append(clauses, fmt.Sprintf("@message like %q", versionTag))
	}
	if len(subjectIDs) > 0 {
		parts := make([]string, 0, len(subjectIDs))
		for _, id := range subjectIDs {
			parts = append(parts, fmt.Sprintf("@message like %q", id))
		}
		clauses = append(clauses, "("+strings.Join(parts, " or ")+")")
	}
	if len(clauses) > 0 {
		b.WriteString(" | filter ")
		b.WriteString(strings.Join(clauses, " and "))
	}

	b.WriteString(" | sort @timestamp desc | limit ")
	b.WriteString(strconv.Itoa(limit))
	return b.String()
}

// hashRequest builds the cache key from every request attribute that affects
// the store query. Subject order does not change the result, so it does not
// change the key.
func hashRequest(req Request) string {
	subjects := make([]string, len(req.SubjectIDs))
	copy(subjects, req.SubjectIDs)
	sort.Strings(subjects)

	return utils.HashFields(
		req.StoreID,
		strconv.FormatInt(req.StartTime, 10),
		strconv.FormatInt(req.EndTime, 10),
		strings.Join(subjects, ","),
		req.VersionTag,
		strconv.Itoa(req.Limit),
	)
}

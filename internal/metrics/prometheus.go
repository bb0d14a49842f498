package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnalysisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logsight_analysis_total",
			Help: "Analysis requests by outcome",
		},
		[]string{"outcome"},
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logsight_analysis_duration_seconds",
			Help:    "End-to-end analysis duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	PollAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "logsight_poll_attempts",
			Help:    "Status polls issued per query",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 30},
		},
	)

	RecordsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logsight_records_fetched_total",
			Help: "Raw records returned by the log store",
		},
	)

	RecordsNormalized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logsight_records_normalized_total",
			Help: "Records successfully normalized",
		},
	)

	RecordsMalformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logsight_records_malformed_total",
			Help: "Records skipped during normalization for matching no known shape",
		},
	)

	EventsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logsight_events_extracted_total",
			Help: "Event candidates extracted from records",
		},
	)

	EventsAfterDedup = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logsight_events_after_dedup_total",
			Help: "Events surviving burst deduplication",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logsight_cache_hits_total",
			Help: "Analysis cache hits",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "logsight_cache_misses_total",
			Help: "Analysis cache misses",
		},
	)
)

func Init() {
	prometheus.MustRegister(AnalysisTotal)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(PollAttempts)
	prometheus.MustRegister(RecordsFetched)
	prometheus.MustRegister(RecordsNormalized)
	prometheus.MustRegister(RecordsMalformed)
	prometheus.MustRegister(EventsExtracted)
	prometheus.MustRegister(EventsAfterDedup)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

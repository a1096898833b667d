package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and feedback Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdex",
			Name:      "search_requests_total",
			Help:      "Total number of ask requests",
		},
		[]string{"strategy", "cache"}, // cache: "hit" / "miss"
	)

	SearchFallbackDepth = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "askdex",
			Name:      "search_fallback_depth",
			Help:      "Fallback chain depth at which the answer was produced",
			Buckets:   []float64{0, 1, 2, 3, 4},
		},
	)

	SearchConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "askdex",
			Name:      "search_confidence",
			Help:      "Confidence of returned results",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "askdex",
			Name:      "search_duration_seconds",
			Help:      "End to end ask duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"strategy"},
	)

	ResultCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdex",
			Name:      "result_cache_total",
			Help:      "Result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	FeedbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "askdex",
			Name:      "feedback_total",
			Help:      "Feedback records by rating",
		},
		[]string{"rating"}, // "up" / "down"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers ask path metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchFallbackDepth)
	prometheus.MustRegister(SearchConfidence)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ResultCacheTotal)
	prometheus.MustRegister(FeedbackTotal)
	searchMetricsRegistered = true
}

package ask

import (
	"context"
	"time"

	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/metrics"
)

// Asker is the ask entrypoint. Service implements it.
type Asker interface {
	Ask(ctx context.Context, req request.Request) result.Result
}

// Instrumented wraps an Asker with Prometheus metrics. The core service
// stays metrics-free; this decorator derives everything it records from
// the returned result.
type Instrumented struct {
	inner Asker
}

// NewInstrumented wraps an asker with observability.
func NewInstrumented(inner Asker) *Instrumented {
	return &Instrumented{inner: inner}
}

// Ask delegates and records strategy, cache outcome, fallback depth,
// confidence and duration.
func (i *Instrumented) Ask(ctx context.Context, req request.Request) result.Result {
	start := time.Now()

	res := i.inner.Ask(ctx, req)

	strategy := res.MethodUsed()
	cacheLabel := "miss"
	if res.CacheHit() {
		cacheLabel = "hit"
	}

	metrics.SearchRequestsTotal.WithLabelValues(strategy, cacheLabel).Inc()
	metrics.SearchDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	if req.UseCache() {
		metrics.ResultCacheTotal.WithLabelValues(cacheLabel).Inc()
	}

	if !res.CacheHit() {
		metrics.SearchFallbackDepth.Observe(float64(fallbackDepth(strategy)))
		metrics.SearchConfidence.Observe(res.Confidence())
	}

	return res
}

// fallbackDepth maps the reported method back to the chain level that
// produced it. Direct strategies all answer at depth zero.
func fallbackDepth(method string) int {
	switch method {
	case result.MethodThresholdRelax:
		return 1
	case result.MethodQueryExpansion:
		return 2
	case result.MethodSimplifiedQuery:
		return 3
	case result.MethodNoResults:
		return 4
	default:
		return 0
	}
}

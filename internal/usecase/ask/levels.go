package ask

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/strategy"
)

// newLevels builds the ordered fallback chain. Order is the escalation
// order; the terminal level must stay last.
func newLevels(s *Service) []level {
	return []level{
		primaryLevel{s},
		relaxLevel{s},
		expandLevel{s},
		simplifyLevel{s},
		terminalLevel{},
	}
}

// primaryLevel runs the routed plan as is.
type primaryLevel struct{ s *Service }

func (l primaryLevel) name() string { return "primary" }

func (l primaryLevel) attempt(ctx context.Context, st *chainState) (outcome, bool) {
	method := methodFor(st.plan.Strategy())
	fused, err := l.s.retrieve(ctx, st, st.req.Query(), st.plan.Strategy())
	if err != nil {
		l.s.log.Warn("primary retrieval failed", zap.Error(err))
		return outcome{}, false
	}

	kept := st.keepAboveThreshold(fused, method)
	if len(kept) == 0 {
		return outcome{}, false
	}
	return outcome{passages: kept, method: method}, true
}

// relaxLevel retries the primary strategy with the threshold lowered in
// fixed steps. Strictness bounds the step count; strictness 3 allows
// none.
type relaxLevel struct{ s *Service }

func (l relaxLevel) name() string { return "threshold_relaxation" }

func (l relaxLevel) attempt(ctx context.Context, st *chainState) (outcome, bool) {
	steps := request.MaxStrictness - st.req.Strictness()
	for i := 0; i < steps; i++ {
		next := st.threshold - l.s.cfg.ThresholdStep
		if next < 0 {
			next = 0
		}
		st.threshold = next

		fused, err := l.s.retrieve(ctx, st, st.req.Query(), st.plan.Strategy())
		if err != nil {
			l.s.log.Warn("relaxed retrieval failed", zap.Error(err))
			return outcome{}, false
		}
		kept := st.keepAboveThreshold(fused, result.MethodThresholdRelax)
		if len(kept) > 0 {
			return outcome{passages: kept, method: result.MethodThresholdRelax}, true
		}
		if st.threshold == 0 {
			break
		}
	}
	return outcome{}, false
}

// expandLevel augments the query with domain synonyms and retries the
// hybrid strategy.
type expandLevel struct{ s *Service }

func (l expandLevel) name() string { return "query_expansion" }

func (l expandLevel) attempt(ctx context.Context, st *chainState) (outcome, bool) {
	expanded := expandQuery(st.req.Query(), l.s.synonyms.Snapshot())
	if expanded == st.req.Query() {
		return outcome{}, false
	}

	fused, err := l.s.retrieve(ctx, st, expanded, effectiveStrategy(strategy.Hybrid, st.textOK))
	if err != nil {
		l.s.log.Warn("expanded retrieval failed", zap.Error(err))
		return outcome{}, false
	}

	kept := st.keepAboveThreshold(fused, result.MethodQueryExpansion)
	if len(kept) == 0 {
		return outcome{}, false
	}
	return outcome{passages: kept, method: result.MethodQueryExpansion}, true
}

// simplifyLevel strips the query to its strongest keywords and retries
// lexical search.
type simplifyLevel struct{ s *Service }

func (l simplifyLevel) name() string { return "query_simplification" }

func (l simplifyLevel) attempt(ctx context.Context, st *chainState) (outcome, bool) {
	simplified := simplifyQuery(st.req.Query())
	if simplified == "" {
		return outcome{}, false
	}

	fused, err := l.s.retrieve(ctx, st, simplified, effectiveStrategy(strategy.FtsOnly, st.textOK))
	if err != nil {
		l.s.log.Warn("simplified retrieval failed", zap.Error(err))
		return outcome{}, false
	}

	kept := st.keepAboveThreshold(fused, result.MethodSimplifiedQuery)
	if len(kept) == 0 {
		return outcome{}, false
	}
	return outcome{passages: kept, method: result.MethodSimplifiedQuery}, true
}

// terminalLevel always returns: the best passage seen at any prior
// level, or the empty no-results outcome.
type terminalLevel struct{}

func (terminalLevel) name() string { return "terminal" }

func (terminalLevel) attempt(_ context.Context, st *chainState) (outcome, bool) {
	if len(st.best) > 0 {
		return outcome{passages: st.best, method: st.bestMethod}, true
	}
	return outcome{method: result.MethodNoResults}, true
}

package plan

import "github.com/kailas-cloud/askdex/internal/domain/search/strategy"

// Plan is the routing decision for a single ask request: which strategy
// to run first and with what parameters. Immutable; fallback levels
// derive adjusted copies.
type Plan struct {
	strategy  strategy.Strategy
	topK      int
	threshold float64
}

// New creates a routing plan.
func New(s strategy.Strategy, topK int, threshold float64) Plan {
	return Plan{strategy: s, topK: topK, threshold: threshold}
}

// Strategy returns the retrieval strategy.
func (p Plan) Strategy() strategy.Strategy { return p.strategy }

// TopK returns the number of candidates to retrieve.
func (p Plan) TopK() int { return p.topK }

// Threshold returns the minimum fused score a passage must reach
// (inclusive boundary).
func (p Plan) Threshold() float64 { return p.threshold }

// WithStrategy returns a copy with a different strategy.
func (p Plan) WithStrategy(s strategy.Strategy) Plan {
	p.strategy = s
	return p
}

// WithThreshold returns a copy with a different threshold.
func (p Plan) WithThreshold(t float64) Plan {
	if t < 0 {
		t = 0
	}
	p.threshold = t
	return p
}

// WithTopK returns a copy with a different topK.
func (p Plan) WithTopK(k int) Plan {
	p.topK = k
	return p
}

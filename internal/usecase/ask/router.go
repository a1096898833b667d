package ask

import (
	"strings"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/plan"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/strategy"
)

// Query cue words inspected by the router.
var (
	enumerationCues = []string{"list", "all", "every", "enumerate", "each", "table"}
	quoteCues       = []string{"exact", "exactly", "verbatim", "quote", "quoted"}
)

// Router picks the initial retrieval plan from the query shape and the
// scoped corpus size. Pure; no side effects.
type Router struct {
	cfg Tunables
}

// NewRouter creates a router with normalized tunables.
func NewRouter(cfg Tunables) *Router {
	return &Router{cfg: cfg.normalized()}
}

// Classify maps a request and its scope statistics to a routing plan.
func (r *Router) Classify(req request.Request, stats domain.CorpusStats) plan.Plan {
	topK := req.TopK()
	threshold := r.adjustedThreshold(req)

	if r.wantsFullDocument(req, stats) {
		return plan.New(strategy.DocumentFull, topK, threshold)
	}

	tokens := tokenize(req.Query())

	if hasCue(tokens, enumerationCues) || req.Mode() == mode.List || req.Mode() == mode.Table {
		topK *= 2
		if topK > request.MaxTopK {
			topK = request.MaxTopK
		}
	}

	// Exact-wording questions are lexical by nature.
	if strings.Contains(req.Query(), `"`) || hasCue(tokens, quoteCues) || req.Mode() == mode.Quote {
		threshold -= r.cfg.ThresholdStep
		return plan.New(strategy.FtsOnly, topK, clamp01(threshold))
	}

	// Vector search on terse queries is unreliable.
	if len(tokens) < r.cfg.ShortQueryTokens {
		return plan.New(strategy.FtsOnly, topK, threshold)
	}

	return plan.New(strategy.Hybrid, topK, threshold)
}

// wantsFullDocument reports whether retrieval should be skipped and the
// whole document handed to synthesis. Requires a single-document scope;
// there is no single body to read for the all scope.
func (r *Router) wantsFullDocument(req request.Request, stats domain.CorpusStats) bool {
	if req.Scope().IsAll() {
		return false
	}
	if req.Mode().WantsFullDocument() {
		return true
	}
	return stats.ChunkCount > 0 &&
		stats.ChunkCount <= r.cfg.FullDocumentChunkLimit &&
		stats.EstimatedTokens() <= r.cfg.ContextBudgetTokens
}

// adjustedThreshold shifts the caller's threshold by strictness:
// strictness above the default raises it, below lowers it.
func (r *Router) adjustedThreshold(req request.Request) float64 {
	shift := float64(req.Strictness()-request.DefaultStrictness) * r.cfg.StrictnessStep
	return clamp01(req.Threshold() + shift)
}

func hasCue(tokens, cues []string) bool {
	for _, tok := range tokens {
		for _, cue := range cues {
			if tok == cue {
				return true
			}
		}
	}
	return false
}

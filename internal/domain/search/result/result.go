package result

import (
	"slices"

	"github.com/kailas-cloud/askdex/internal/domain/passage"
)

// Method names reported in result metadata.
const (
	MethodVectorOnly      = "vector_only"
	MethodFtsOnly         = "fts_only"
	MethodHybrid          = "hybrid"
	MethodDocumentFull    = "document_full"
	MethodThresholdRelax  = "threshold_relaxed"
	MethodQueryExpansion  = "query_expanded"
	MethodSimplifiedQuery = "query_simplified"
	MethodNoResults       = "no_results"
)

// Result is the outcome of one ask request. Passages are ordered by
// descending fused score. Immutable; With-methods return copies so a
// cached Result can never be mutated by a later request.
type Result struct {
	passages      []passage.Passage
	answer        *string
	confidence    float64
	methodUsed    string
	cacheHit      bool
	elapsedMS     int64
	totalSearched int
	suggestions   []string
}

// New creates a result for the given passages and retrieval method.
func New(passages []passage.Passage, methodUsed string) Result {
	return Result{passages: passages, methodUsed: methodUsed}
}

// Empty creates the terminal no-results outcome.
func Empty() Result {
	return Result{methodUsed: MethodNoResults}
}

// Passages returns the ranked passages.
func (r *Result) Passages() []passage.Passage { return r.passages }

// Answer returns the synthesized answer, nil if none was produced.
func (r *Result) Answer() *string { return r.answer }

// Confidence returns the locally computed confidence in [0,1].
func (r Result) Confidence() float64 { return r.confidence }

// MethodUsed returns the retrieval method that produced the passages.
func (r *Result) MethodUsed() string { return r.methodUsed }

// CacheHit reports whether the result was served from the cache.
func (r *Result) CacheHit() bool { return r.cacheHit }

// ElapsedMS returns the request execution time in milliseconds.
func (r *Result) ElapsedMS() int64 { return r.elapsedMS }

// TotalSearched returns the number of chunks in the searched scope.
func (r *Result) TotalSearched() int { return r.totalSearched }

// Suggestions returns follow-up questions offered instead of an answer.
func (r *Result) Suggestions() []string { return r.suggestions }

// WithAnswer returns a copy with the answer set.
func (r Result) WithAnswer(answer string) Result {
	r.answer = &answer
	return r
}

// WithConfidence returns a copy with the confidence set, clamped to [0,1].
func (r Result) WithConfidence(c float64) Result {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	r.confidence = c
	return r
}

// WithSuggestions returns a copy with follow-up questions attached.
func (r Result) WithSuggestions(qs []string) Result {
	r.suggestions = qs
	return r
}

// WithTotalSearched returns a copy with the searched chunk count set.
func (r Result) WithTotalSearched(n int) Result {
	r.totalSearched = n
	return r
}

// WithElapsedMS returns a copy with the execution time set.
func (r Result) WithElapsedMS(ms int64) Result {
	r.elapsedMS = ms
	return r
}

// AsCacheHit returns a copy marked as served from the cache, with the
// serve-side execution time.
func (r Result) AsCacheHit(ms int64) Result {
	r.cacheHit = true
	r.elapsedMS = ms
	return r
}

// Clone returns a copy with detached slices, safe to hand across
// cache boundaries.
func (r Result) Clone() Result {
	r.passages = slices.Clone(r.passages)
	r.suggestions = slices.Clone(r.suggestions)
	return r
}

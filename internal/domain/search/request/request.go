package request

import (
	"fmt"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// Ask parameter limits and defaults.
const (
	// MaxQueryLength is the maximum allowed query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 50
	// DefaultThreshold is the default minimum fused score.
	DefaultThreshold = 0.3
	// DefaultStrictness allows moderate fallback loosening.
	DefaultStrictness = 2
	// MaxStrictness disables answer synthesis entirely (retrieval only).
	MaxStrictness = 3
)

// Request is a validated ask query.
type Request struct {
	query         string
	searchScope   scope.Scope
	topK          int
	threshold     float64
	strictness    int
	askMode       mode.Mode
	includeAnswer bool
	useCache      bool
}

// New validates and normalizes ask parameters.
// Defaults: mode=auto, topK=5, threshold left as given (the transport
// applies 0.3 when the field is absent), strictness as given.
// Validation failures wrap domain.ErrInvalidRequest: they are rejected
// at the boundary and never enter the fallback chain.
func New(
	query string,
	sc scope.Scope,
	topK int,
	threshold float64,
	strictness int,
	m mode.Mode,
	includeAnswer, useCache bool,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if m == "" {
		m = mode.Auto
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid mode %q", domain.ErrInvalidRequest, m)
	}
	if m.WantsFullDocument() && sc.IsAll() {
		return Request{}, fmt.Errorf(
			"%w: mode %q requires a document_id", domain.ErrInvalidRequest, m)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidRequest, topK)
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if threshold < 0 || threshold > 1 {
		return Request{}, fmt.Errorf("%w: threshold must be between 0 and 1", domain.ErrInvalidRequest)
	}
	if strictness < 0 || strictness > MaxStrictness {
		return Request{}, fmt.Errorf(
			"%w: strictness must be between 0 and %d", domain.ErrInvalidRequest, MaxStrictness)
	}

	return Request{
		query:         query,
		searchScope:   sc,
		topK:          topK,
		threshold:     threshold,
		strictness:    strictness,
		askMode:       m,
		includeAnswer: includeAnswer,
		useCache:      useCache,
	}, nil
}

// Query returns the query text.
func (r *Request) Query() string { return r.query }

// Scope returns the corpus subset to search.
func (r *Request) Scope() scope.Scope { return r.searchScope }

// TopK returns the number of candidates to retrieve.
func (r *Request) TopK() int { return r.topK }

// Threshold returns the minimum fused score (inclusive).
func (r *Request) Threshold() float64 { return r.threshold }

// Strictness bounds how aggressively the fallback chain may loosen
// thresholds: 0 is most permissive, 3 is retrieval only (no synthesis).
func (r *Request) Strictness() int { return r.strictness }

// Mode returns the requested answer shape.
func (r *Request) Mode() mode.Mode { return r.askMode }

// IncludeAnswer reports whether answer synthesis was requested.
func (r *Request) IncludeAnswer() bool { return r.includeAnswer }

// UseCache reports whether the result cache may serve this request.
func (r *Request) UseCache() bool { return r.useCache }

// WithQuery returns a copy with a rewritten query. Used by fallback
// levels for expansion and simplification; validation is not repeated
// because rewrites derive from an already valid query.
func (r Request) WithQuery(q string) Request {
	r.query = q
	return r
}

package askdex

import "github.com/kailas-cloud/askdex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidRequest       = domain.ErrInvalidRequest
	ErrNoResults            = domain.ErrNoResults
	ErrDocumentNotFound     = domain.ErrDocumentNotFound
	ErrStoreUnavailable     = domain.ErrStoreUnavailable
	ErrEmbeddingUnavailable = domain.ErrEmbeddingUnavailable
	ErrLLMUnavailable       = domain.ErrLLMUnavailable
	ErrRateLimited          = domain.ErrRateLimited
	ErrTokenQuotaExceeded   = domain.ErrTokenQuotaExceeded
)

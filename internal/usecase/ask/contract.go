package ask

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// Retriever runs the two retrieval signals over stored passages and
// reads whole documents for the full-document path.
type Retriever interface {
	SearchVector(ctx context.Context, vector []float32, sc scope.Scope, topK int) ([]passage.Passage, error)
	SearchText(ctx context.Context, query string, sc scope.Scope, topK int) ([]passage.Passage, error)
	SupportsTextSearch(ctx context.Context) bool
	Chunks(ctx context.Context, documentID string) ([]passage.Passage, error)
}

// CorpusReader provides chunk statistics for routing decisions.
type CorpusReader interface {
	Stats(ctx context.Context) (domain.CorpusStats, error)
	DocumentChunks(ctx context.Context, documentID string) (int, error)
	DocumentChars(ctx context.Context, documentID string) (int, error)
}

// ResultCache memoizes answered requests.
type ResultCache interface {
	Get(req request.Request) (result.Result, bool)
	Put(req request.Request, res result.Result)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SynonymSource returns the current synonym table. Implementations may
// swap the table at runtime; every call reads the latest snapshot.
type SynonymSource interface {
	Snapshot() map[string][]string
}

// StaticSynonyms is a fixed synonym table.
type StaticSynonyms map[string][]string

// Snapshot returns the table itself.
func (s StaticSynonyms) Snapshot() map[string][]string { return s }

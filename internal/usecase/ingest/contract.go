package ingest

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
)

// PassageStore persists document chunks.
type PassageStore interface {
	Replace(ctx context.Context, documentID string, contents []string, vectors [][]float32) error
	Chunks(ctx context.Context, documentID string) ([]passage.Passage, error)
	Delete(ctx context.Context, documentID string) (int, error)
}

// CorpusWriter maintains the chunk and character counters.
type CorpusWriter interface {
	ApplyDelta(ctx context.Context, documentID string, chunks, chars int64) error
	DropDocument(ctx context.Context, documentID string) error
	DocumentChunks(ctx context.Context, documentID string) (int, error)
	DocumentChars(ctx context.Context, documentID string) (int, error)
}

// Embedder vectorizes passage batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// CacheInvalidator drops memoized answers after corpus changes.
type CacheInvalidator interface {
	InvalidateAll()
}

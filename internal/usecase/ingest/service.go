// Package ingest manages the document lifecycle: replacing a document's
// pre-chunked passages, reading them back, and deleting them. Every
// corpus change invalidates the result cache, since cached answers may
// cite passages that no longer exist.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
)

// MaxPassages is the maximum chunk count per document.
const MaxPassages = 500

// maxDocumentIDLength bounds identifiers so they stay usable as key parts.
const maxDocumentIDLength = 256

// Service handles document ingestion and deletion.
type Service struct {
	passages PassageStore
	corpus   CorpusWriter
	embed    Embedder
	cache    CacheInvalidator
	log      *zap.Logger
}

// New creates an ingest service. cache may be nil when no result cache
// is configured.
func New(passages PassageStore, corpus CorpusWriter, embed Embedder, cache CacheInvalidator, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{passages: passages, corpus: corpus, embed: embed, cache: cache, log: log}
}

// Ingest replaces a document's passages with the given pre-chunked
// contents, embedding them in one batch call. Returns the stored count.
func (s *Service) Ingest(ctx context.Context, documentID string, contents []string) (int, error) {
	if err := validateDocumentID(documentID); err != nil {
		return 0, err
	}
	if len(contents) == 0 {
		return 0, fmt.Errorf("%w: at least one passage is required", domain.ErrInvalidRequest)
	}
	if len(contents) > MaxPassages {
		return 0, fmt.Errorf("%w: too many passages (max %d)", domain.ErrInvalidRequest, MaxPassages)
	}
	var newChars int
	for i, content := range contents {
		if content == "" {
			return 0, fmt.Errorf("%w: passage %d is empty", domain.ErrInvalidRequest, i)
		}
		if len(content) > passage.MaxContentSize {
			return 0, fmt.Errorf(
				"%w: passage %d too large (max %d bytes)", domain.ErrInvalidRequest, i, passage.MaxContentSize)
		}
		newChars += len(content)
	}

	prevChunks, prevChars := s.currentCounters(ctx, documentID)

	emb, err := s.embed.BatchEmbed(ctx, contents)
	if err != nil {
		return 0, fmt.Errorf("embed passages: %w", err)
	}
	if len(emb.Embeddings) != len(contents) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, want %d", len(emb.Embeddings), len(contents))
	}

	if err := s.passages.Replace(ctx, documentID, contents, emb.Embeddings); err != nil {
		return 0, fmt.Errorf("replace passages: %w", err)
	}

	if err := s.corpus.ApplyDelta(ctx, documentID,
		int64(len(contents)-prevChunks), int64(newChars-prevChars)); err != nil {
		s.log.Warn("corpus counters not updated",
			zap.String("document_id", documentID), zap.Error(err))
	}

	s.invalidate()

	s.log.Info("document ingested",
		zap.String("document_id", documentID),
		zap.Int("passages", len(contents)),
		zap.Int("embedding_tokens", emb.TotalTokens))
	return len(contents), nil
}

// Document returns a document's passages in ordinal order.
func (s *Service) Document(ctx context.Context, documentID string) ([]passage.Passage, error) {
	if err := validateDocumentID(documentID); err != nil {
		return nil, err
	}
	return s.passages.Chunks(ctx, documentID)
}

// Delete removes a document's passages and counters. Returns how many
// passages existed.
func (s *Service) Delete(ctx context.Context, documentID string) (int, error) {
	if err := validateDocumentID(documentID); err != nil {
		return 0, err
	}

	prevChunks, prevChars := s.currentCounters(ctx, documentID)

	deleted, err := s.passages.Delete(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete passages: %w", err)
	}
	if deleted == 0 {
		return 0, domain.ErrDocumentNotFound
	}

	if err := s.corpus.ApplyDelta(ctx, documentID, int64(-prevChunks), int64(-prevChars)); err != nil {
		s.log.Warn("corpus counters not updated",
			zap.String("document_id", documentID), zap.Error(err))
	}
	if err := s.corpus.DropDocument(ctx, documentID); err != nil {
		s.log.Warn("document counters not dropped",
			zap.String("document_id", documentID), zap.Error(err))
	}

	s.invalidate()

	s.log.Info("document deleted",
		zap.String("document_id", documentID), zap.Int("passages", deleted))
	return deleted, nil
}

func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
}

// currentCounters reads the document's stored counters; read failures
// count as zero so ingestion never blocks on stats.
func (s *Service) currentCounters(ctx context.Context, documentID string) (chunks, chars int) {
	chunks, err := s.corpus.DocumentChunks(ctx, documentID)
	if err != nil {
		chunks = 0
	}
	chars, err = s.corpus.DocumentChars(ctx, documentID)
	if err != nil {
		chars = 0
	}
	return chunks, chars
}

// validateDocumentID accepts opaque identifiers that are safe to embed
// in storage keys and scan patterns.
func validateDocumentID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidRequest)
	}
	if len(id) > maxDocumentIDLength {
		return fmt.Errorf("%w: document ID too long (max %d chars)", domain.ErrInvalidRequest, maxDocumentIDLength)
	}
	if strings.ContainsAny(id, "*?[]{}:\n\t ") {
		return fmt.Errorf("%w: document ID contains reserved characters", domain.ErrInvalidRequest)
	}
	return nil
}

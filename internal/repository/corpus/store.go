// Package corpus tracks corpus-level counters used by routing decisions:
// how many chunks a document has and how big the whole corpus is.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
)

const (
	keyChunks = domain.KeyPrefix + "stats:chunks"
	keyChars  = domain.KeyPrefix + "stats:chars"
)

// store is the consumer interface for counter operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Del(ctx context.Context, key string) error
}

// Store implements corpus statistics on counters (INCRBY + GET).
type Store struct {
	store store
}

// New creates a corpus statistics store.
func New(s store) *Store {
	return &Store{store: s}
}

// ApplyDelta adjusts global and per-document counters after an ingest
// or delete. Negative values shrink the counters.
func (s *Store) ApplyDelta(ctx context.Context, documentID string, chunks, chars int64) error {
	if chunks == 0 && chars == 0 {
		return nil
	}

	if err := s.store.IncrBy(ctx, keyChunks, chunks); err != nil {
		return fmt.Errorf("stats INCRBY chunks: %w", err)
	}
	if err := s.store.IncrBy(ctx, keyChars, chars); err != nil {
		return fmt.Errorf("stats INCRBY chars: %w", err)
	}
	if err := s.store.IncrBy(ctx, docChunksKey(documentID), chunks); err != nil {
		return fmt.Errorf("stats INCRBY doc chunks: %w", err)
	}
	if err := s.store.IncrBy(ctx, docCharsKey(documentID), chars); err != nil {
		return fmt.Errorf("stats INCRBY doc chars: %w", err)
	}
	return nil
}

// DropDocument removes the per-document counters entirely.
func (s *Store) DropDocument(ctx context.Context, documentID string) error {
	if err := s.store.Del(ctx, docChunksKey(documentID)); err != nil {
		return fmt.Errorf("stats DEL doc chunks: %w", err)
	}
	if err := s.store.Del(ctx, docCharsKey(documentID)); err != nil {
		return fmt.Errorf("stats DEL doc chars: %w", err)
	}
	return nil
}

// Stats returns corpus-wide chunk count and average chunk length.
func (s *Store) Stats(ctx context.Context) (domain.CorpusStats, error) {
	chunks, err := s.counter(ctx, keyChunks)
	if err != nil {
		return domain.CorpusStats{}, err
	}
	chars, err := s.counter(ctx, keyChars)
	if err != nil {
		return domain.CorpusStats{}, err
	}

	stats := domain.CorpusStats{ChunkCount: int(chunks)}
	if chunks > 0 {
		stats.AvgChunkLen = int(chars / chunks)
	}
	return stats, nil
}

// DocumentChunks returns how many chunks a single document holds.
func (s *Store) DocumentChunks(ctx context.Context, documentID string) (int, error) {
	n, err := s.counter(ctx, docChunksKey(documentID))
	return int(n), err
}

// DocumentChars returns the total character size of a single document.
func (s *Store) DocumentChars(ctx context.Context, documentID string) (int, error) {
	n, err := s.counter(ctx, docCharsKey(documentID))
	return int(n), err
}

func (s *Store) counter(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("stats GET %s: %w", key, err)
	}
	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("stats GET %s parse: %w", key, err)
	}
	return val, nil
}

func docChunksKey(documentID string) string {
	return domain.KeyPrefix + "stats:doc:" + documentID + ":chunks"
}

func docCharsKey(documentID string) string {
	return domain.KeyPrefix + "stats:doc:" + documentID + ":chars"
}

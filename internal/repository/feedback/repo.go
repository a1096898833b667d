// Package feedback persists user ratings of answers for offline tuning.
package feedback

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/feedback"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

const keyPrefix = domain.KeyPrefix + "feedback:"

const (
	fieldQuery     = "query"
	fieldScope     = "scope"
	fieldRating    = "rating"
	fieldCreatedAt = "created_at"
)

// store is the consumer interface for feedback persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo stores feedback records as hashes keyed by generated UUIDs.
type Repo struct {
	store store
}

// New creates a feedback repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Save persists a record, assigning it a fresh ID.
func (r *Repo) Save(ctx context.Context, rec feedback.Record) (feedback.Record, error) {
	saved := rec.WithID(uuid.NewString())

	fields := map[string]string{
		fieldQuery:     saved.Query(),
		fieldRating:    strconv.Itoa(saved.Rating()),
		fieldCreatedAt: strconv.FormatInt(saved.CreatedAt().UnixMilli(), 10),
	}
	if !saved.Scope().IsAll() {
		fields[fieldScope] = saved.Scope().DocumentID()
	}

	if err := r.store.HSet(ctx, keyPrefix+saved.ID(), fields); err != nil {
		return feedback.Record{}, fmt.Errorf("save feedback: %w", err)
	}
	return saved, nil
}

// List returns stored records, newest first, up to limit.
func (r *Repo) List(ctx context.Context, limit int) ([]feedback.Record, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan feedback: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	fieldMaps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}

	records := make([]feedback.Record, 0, len(fieldMaps))
	for i, fields := range fieldMaps {
		rec, err := fieldsToRecord(keys[i], fields)
		if err != nil {
			continue // skip records written by incompatible versions
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt().After(records[j].CreatedAt())
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func fieldsToRecord(key string, fields map[string]string) (feedback.Record, error) {
	query := fields[fieldQuery]
	if query == "" {
		return feedback.Record{}, fmt.Errorf("key %s: missing query", key)
	}

	rating, err := strconv.Atoi(fields[fieldRating])
	if err != nil {
		return feedback.Record{}, fmt.Errorf("key %s: bad rating: %w", key, err)
	}

	createdMillis, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return feedback.Record{}, fmt.Errorf("key %s: bad created_at: %w", key, err)
	}

	sc := scope.All()
	if docID := fields[fieldScope]; docID != "" {
		sc = scope.Document(docID)
	}

	id := key[len(keyPrefix):]
	return feedback.Reconstruct(id, query, sc, rating, time.UnixMilli(createdMillis)), nil
}

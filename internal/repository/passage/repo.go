// Package passage persists document chunks and runs the two retrieval
// signals (vector KNN and full-text) over them.
package passage

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// store is the consumer interface for passage operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SupportsTextSearch(ctx context.Context) bool
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements the retrieval and chunk storage used by usecase/ask
// and usecase/ingest.
type Repo struct {
	store store
}

// New creates a passage repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// EnsureIndex creates the passage index when it does not exist yet.
// m and efConstruct tune the HNSW graph; non-positive values fall back
// to the usual 16/200.
func (r *Repo) EnsureIndex(ctx context.Context, dim, m, efConstruct int) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	if m <= 0 {
		m = 16
	}
	if efConstruct <= 0 {
		efConstruct = 200
	}

	def, err := db.NewIndex(indexName).
		Prefix(keyPrefix).
		Text(fieldContent).
		Tag(fieldDocumentID).
		Numeric(fieldOrdinal).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, m, efConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// SearchVector runs KNN retrieval and returns passages carrying a
// similarity score in [0,1].
func (r *Repo) SearchVector(
	ctx context.Context, vector []float32, sc scope.Scope, topK int,
) ([]passage.Passage, error) {
	q := &db.KNNQuery{
		IndexName:    indexName,
		DocumentID:   sc.DocumentID(),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{fieldContent, fieldDocumentID, fieldOrdinal},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search vector: %w", err)
	}

	passages := make([]passage.Passage, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		p, err := entryToPassage(entry)
		if err != nil {
			continue // malformed record, skip rather than fail retrieval
		}
		passages = append(passages, p.WithSimilarity(entry.Score))
	}
	return passages, nil
}

// SearchText runs full-text retrieval and returns passages carrying a
// raw lexical score. Scores are engine-relative; callers normalize.
func (r *Repo) SearchText(
	ctx context.Context, query string, sc scope.Scope, topK int,
) ([]passage.Passage, error) {
	q := &db.TextQuery{
		IndexName:    indexName,
		Query:        query,
		DocumentID:   sc.DocumentID(),
		TopK:         topK,
		ReturnFields: []string{fieldContent, fieldDocumentID, fieldOrdinal},
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}

	passages := make([]passage.Passage, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		p, err := entryToPassage(entry)
		if err != nil {
			continue
		}
		passages = append(passages, p.WithLexical(entry.Score))
	}
	return passages, nil
}

// Chunks returns every stored passage of a document in ordinal order.
func (r *Repo) Chunks(ctx context.Context, documentID string) ([]passage.Passage, error) {
	keys, err := r.store.Scan(ctx, documentPattern(documentID))
	if err != nil {
		return nil, fmt.Errorf("scan chunks %s: %w", documentID, err)
	}
	if len(keys) == 0 {
		return nil, domain.ErrDocumentNotFound
	}

	fieldMaps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load chunks %s: %w", documentID, err)
	}

	passages := make([]passage.Passage, 0, len(fieldMaps))
	for i, fields := range fieldMaps {
		p, err := fieldsToPassage(keys[i], fields)
		if err != nil {
			return nil, fmt.Errorf("decode chunk %s: %w", keys[i], err)
		}
		passages = append(passages, p)
	}

	sort.Slice(passages, func(i, j int) bool {
		return passages[i].Ordinal() < passages[j].Ordinal()
	})
	return passages, nil
}

// Replace removes a document's previous chunks and stores the new set
// in one pipelined write.
func (r *Repo) Replace(
	ctx context.Context, documentID string, contents []string, vectors [][]float32,
) error {
	if len(contents) != len(vectors) {
		return fmt.Errorf("replace %s: %d contents vs %d vectors", documentID, len(contents), len(vectors))
	}

	if _, err := r.Delete(ctx, documentID); err != nil {
		return err
	}

	items := make([]db.HashSetItem, len(contents))
	for i, content := range contents {
		items[i] = db.HashSetItem{
			Key: passageKey(documentID, i),
			Fields: map[string]string{
				fieldContent:    content,
				fieldDocumentID: documentID,
				fieldOrdinal:    fmt.Sprintf("%d", i),
				fieldVector:     vectorToBytes(vectors[i]),
			},
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store chunks %s: %w", documentID, err)
	}
	return nil
}

// Delete removes all chunks of a document and returns how many existed.
func (r *Repo) Delete(ctx context.Context, documentID string) (int, error) {
	keys, err := r.store.Scan(ctx, documentPattern(documentID))
	if err != nil {
		return 0, fmt.Errorf("scan for delete %s: %w", documentID, err)
	}

	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return 0, fmt.Errorf("delete chunk %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// Exists reports whether a document has any stored chunks.
func (r *Repo) Exists(ctx context.Context, documentID string) (bool, error) {
	keys, err := r.store.Scan(ctx, documentPattern(documentID))
	if err != nil {
		return false, fmt.Errorf("scan %s: %w", documentID, err)
	}
	return len(keys) > 0, nil
}

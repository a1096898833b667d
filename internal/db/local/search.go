package local

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/askdex/internal/db"
)

// SearchKNN runs brute-force cosine similarity over the index prefixes.
// Adequate for single-node corpora; the Redis driver handles HNSW scale.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	s.mu.RLock()
	h, ok := s.indexes[q.IndexName]
	s.mu.RUnlock()
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	if h.vectorField == "" {
		return nil, fmt.Errorf("index %s has no vector field", q.IndexName)
	}

	var entries []db.SearchEntry
	for _, prefix := range h.def.Prefixes {
		err := s.badgerDB.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				item := it.Item()
				key := string(item.Key())

				var fields map[string]string
				err := item.Value(func(val []byte) error {
					var derr error
					fields, derr = decodeFields(val)
					return derr
				})
				if err != nil {
					continue
				}

				if q.DocumentID != "" && fields["document_id"] != q.DocumentID {
					continue
				}

				vec := vectorFromBytes(fields[h.vectorField])
				if len(vec) == 0 {
					continue
				}

				entries = append(entries, db.SearchEntry{
					Key:    key,
					Score:  max(0, cosineSimilarity(q.Vector, vec)),
					Fields: projectFields(fields, q.ReturnFields, h.vectorField, q.IncludeVector),
				})
			}
			return nil
		})
		if err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}
	}

	slices.SortFunc(entries, func(a, b db.SearchEntry) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Key, b.Key)
		}
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// SearchBM25 runs a full-text search through bleve.
func (s *Store) SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	s.mu.RLock()
	h, ok := s.indexes[q.IndexName]
	s.mu.RUnlock()
	if !ok {
		return nil, db.ErrIndexNotFound
	}

	match := bleve.NewMatchQuery(q.Query)
	match.SetField("__content")

	var searchQuery = bleve.NewConjunctionQuery(match)
	if q.DocumentID != "" {
		term := bleve.NewTermQuery(q.DocumentID)
		term.SetField("document_id")
		searchQuery.AddQuery(term)
	}

	req := bleve.NewSearchRequestOptions(searchQuery, q.TopK, 0, false)
	res, err := h.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		fields, err := s.HGetAll(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, db.SearchEntry{
			Key:    hit.ID,
			Score:  hit.Score,
			Fields: projectFields(fields, q.ReturnFields, h.vectorField, false),
		})
	}

	return &db.SearchResult{Total: int(res.Total), Entries: entries}, nil
}

// SearchList performs paginated listing over an index.
func (s *Store) SearchList(
	ctx context.Context, index, query string, offset, limit int, fields []string,
) (*db.SearchResult, error) {
	s.mu.RLock()
	h, ok := s.indexes[index]
	s.mu.RUnlock()
	if !ok {
		return nil, db.ErrIndexNotFound
	}

	req := bleve.NewSearchRequestOptions(listQuery(query), limit, offset, false)
	res, err := h.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hitFields, err := s.HGetAll(ctx, hit.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, db.SearchEntry{
			Key:    hit.ID,
			Fields: projectFields(hitFields, fields, h.vectorField, false),
		})
	}

	return &db.SearchResult{Total: int(res.Total), Entries: entries}, nil
}

// SearchCount returns the number of documents matching a query.
func (s *Store) SearchCount(ctx context.Context, index, query string) (int, error) {
	s.mu.RLock()
	h, ok := s.indexes[index]
	s.mu.RUnlock()
	if !ok {
		return 0, db.ErrIndexNotFound
	}

	req := bleve.NewSearchRequestOptions(listQuery(query), 0, 0, false)
	res, err := h.idx.SearchInContext(ctx, req)
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
	}
	return int(res.Total), nil
}

func listQuery(q string) bquery.Query {
	if q == "" || q == "*" {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewQueryStringQuery(q)
}

// projectFields applies RETURN-style field selection and hides the raw
// vector payload unless explicitly requested.
func projectFields(fields map[string]string, returnFields []string, vectorField string, includeVector bool) map[string]string {
	if len(returnFields) > 0 {
		out := make(map[string]string, len(returnFields))
		for _, name := range returnFields {
			if v, ok := fields[name]; ok {
				out[name] = v
			}
		}
		return out
	}

	out := make(map[string]string, len(fields))
	for name, v := range fields {
		if name == vectorField && !includeVector {
			continue
		}
		out[name] = v
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

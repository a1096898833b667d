package passage

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

func TestSearchVector(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		if q.IndexName != "askdex:passages:idx" {
			t.Errorf("index = %q", q.IndexName)
		}
		if q.DocumentID != "" {
			t.Errorf("DocumentID = %q, want empty for all scope", q.DocumentID)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:   "askdex:passage:d1:0",
			Score: 0.92,
			Fields: map[string]string{
				"__content":   "termination clause text",
				"document_id": "d1",
				"ordinal":     "0",
			},
		}}}, nil
	}

	passages, err := repo.SearchVector(context.Background(), []float32{0.1, 0.2}, scope.All(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("passages = %d", len(passages))
	}
	p := passages[0]
	if p.DocumentID() != "d1" || p.Ordinal() != 0 {
		t.Errorf("passage = %s/%d", p.DocumentID(), p.Ordinal())
	}
	if s := p.Similarity(); s == nil || *s != 0.92 {
		t.Errorf("similarity = %v", s)
	}
	if p.Lexical() != nil {
		t.Error("lexical must stay unset on vector hits")
	}
}

func TestSearchVector_ScopePropagated(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotDoc string
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		gotDoc = q.DocumentID
		return &db.SearchResult{}, nil
	}

	_, err := repo.SearchVector(context.Background(), []float32{0.1}, scope.Document("d7"), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDoc != "d7" {
		t.Errorf("DocumentID = %q", gotDoc)
	}
}

func TestSearchVector_SkipsMalformedEntries(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "askdex:passage:d1:0", Score: 0.9, Fields: map[string]string{
				"__content": "ok", "document_id": "d1", "ordinal": "0",
			}},
			{Key: "askdex:passage:broken", Score: 0.8, Fields: map[string]string{}},
		}}, nil
	}

	passages, err := repo.SearchVector(context.Background(), []float32{0.1}, scope.All(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passages) != 1 {
		t.Errorf("passages = %d, want malformed entry skipped", len(passages))
	}
}

func TestSearchText(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchBM25Fn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		if q.Query != "terminate" {
			t.Errorf("query = %q", q.Query)
		}
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{{
			Key:   "askdex:passage:d1:2",
			Score: 3.4,
			Fields: map[string]string{
				"__content":   "either party may terminate",
				"document_id": "d1",
				"ordinal":     "2",
			},
		}}}, nil
	}

	passages, err := repo.SearchText(context.Background(), "terminate", scope.All(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("passages = %d", len(passages))
	}
	if l := passages[0].Lexical(); l == nil || *l != 3.4 {
		t.Errorf("lexical = %v", l)
	}
	if passages[0].Similarity() != nil {
		t.Error("similarity must stay unset on text hits")
	}
}

func TestSearchText_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchBM25Fn = func(_ context.Context, _ *db.TextQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: context.DeadlineExceeded}
	}

	_, err := repo.SearchText(context.Background(), "q", scope.All(), 5)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestChunks_OrderedByOrdinal(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "askdex:passage:d1:*" {
			t.Errorf("pattern = %q", pattern)
		}
		return []string{"askdex:passage:d1:2", "askdex:passage:d1:0", "askdex:passage:d1:1"}, nil
	}
	ms.hGetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		out := make([]map[string]string, len(keys))
		for i, key := range keys {
			ord := key[len(key)-1:]
			out[i] = map[string]string{"__content": "chunk " + ord, "document_id": "d1", "ordinal": ord}
		}
		return out, nil
	}

	passages, err := repo.Chunks(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(passages) != 3 {
		t.Fatalf("passages = %d", len(passages))
	}
	for i, p := range passages {
		if p.Ordinal() != i {
			t.Errorf("position %d holds ordinal %d", i, p.Ordinal())
		}
	}
}

func TestChunks_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) { return nil, nil }

	_, err := repo.Chunks(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestReplace_DeletesThenWrites(t *testing.T) {
	repo, ms := newTestRepo(t)

	var deleted []string
	var written []db.HashSetItem
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"askdex:passage:d1:0", "askdex:passage:d1:1"}, nil
	}
	ms.delFn = func(_ context.Context, key string) error {
		deleted = append(deleted, key)
		return nil
	}
	ms.hSetMultiFn = func(_ context.Context, items []db.HashSetItem) error {
		written = items
		return nil
	}

	err := repo.Replace(context.Background(), "d1",
		[]string{"first"}, [][]float32{{0.1, 0.2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted = %d, want prior chunks removed", len(deleted))
	}
	if len(written) != 1 {
		t.Fatalf("written = %d", len(written))
	}
	if written[0].Key != "askdex:passage:d1:0" {
		t.Errorf("key = %q", written[0].Key)
	}
	if written[0].Fields["document_id"] != "d1" || written[0].Fields["ordinal"] != "0" {
		t.Errorf("fields = %v", written[0].Fields)
	}
	if len(written[0].Fields["vector"]) != 8 {
		t.Errorf("vector bytes = %d, want 8", len(written[0].Fields["vector"]))
	}
}

func TestReplace_LengthMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.Replace(context.Background(), "d1", []string{"a", "b"}, [][]float32{{0.1}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDelete_ReturnsCount(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{"askdex:passage:d1:0", "askdex:passage:d1:1", "askdex:passage:d1:2"}, nil
	}

	count, err := repo.Delete(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d", count)
	}
}

func TestEnsureIndex_SkipsWhenPresent(t *testing.T) {
	repo, ms := newTestRepo(t)

	created := false
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.createIndexFn = func(_ context.Context, _ *db.IndexDefinition) error {
		created = true
		return nil
	}

	if err := repo.EnsureIndex(context.Background(), 1024, 16, 200); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("index must not be recreated")
	}
}

func TestEnsureIndex_CreatesWithSchema(t *testing.T) {
	repo, ms := newTestRepo(t)

	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.EnsureIndex(context.Background(), 1024, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def == nil {
		t.Fatal("index not created")
	}
	if def.Name != "askdex:passages:idx" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Fields) != 4 {
		t.Errorf("fields = %d, want content+doc+ordinal+vector", len(def.Fields))
	}
}

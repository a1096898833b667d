package ask

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// --- Mocks ---

type mockRetriever struct {
	searchVectorFn func(ctx context.Context, vector []float32, sc scope.Scope, topK int) ([]passage.Passage, error)
	searchTextFn   func(ctx context.Context, query string, sc scope.Scope, topK int) ([]passage.Passage, error)
	chunksFn       func(ctx context.Context, documentID string) ([]passage.Passage, error)
	textOK         bool

	vectorCalls int
	textCalls   int
	chunksCalls int
}

func (m *mockRetriever) SearchVector(
	ctx context.Context, vector []float32, sc scope.Scope, topK int,
) ([]passage.Passage, error) {
	m.vectorCalls++
	if m.searchVectorFn != nil {
		return m.searchVectorFn(ctx, vector, sc, topK)
	}
	return nil, nil
}

func (m *mockRetriever) SearchText(
	ctx context.Context, query string, sc scope.Scope, topK int,
) ([]passage.Passage, error) {
	m.textCalls++
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, query, sc, topK)
	}
	return nil, nil
}

func (m *mockRetriever) SupportsTextSearch(_ context.Context) bool { return m.textOK }

func (m *mockRetriever) Chunks(ctx context.Context, documentID string) ([]passage.Passage, error) {
	m.chunksCalls++
	if m.chunksFn != nil {
		return m.chunksFn(ctx, documentID)
	}
	return nil, domain.ErrDocumentNotFound
}

type mockCorpus struct {
	statsFn     func(ctx context.Context) (domain.CorpusStats, error)
	docChunksFn func(ctx context.Context, documentID string) (int, error)
	docCharsFn  func(ctx context.Context, documentID string) (int, error)
}

func (m *mockCorpus) Stats(ctx context.Context) (domain.CorpusStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return domain.CorpusStats{ChunkCount: 100, AvgChunkLen: 500}, nil
}

func (m *mockCorpus) DocumentChunks(ctx context.Context, documentID string) (int, error) {
	if m.docChunksFn != nil {
		return m.docChunksFn(ctx, documentID)
	}
	return 100, nil
}

func (m *mockCorpus) DocumentChars(ctx context.Context, documentID string) (int, error) {
	if m.docCharsFn != nil {
		return m.docCharsFn(ctx, documentID)
	}
	return 50000, nil
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, TotalTokens: 4}, nil
}

type mockSynthesizer struct {
	synthesizeFn func(ctx context.Context, query string, m mode.Mode, passages []passage.Passage) (domain.Synthesis, error)
	calls        int
}

func (m *mockSynthesizer) Synthesize(
	ctx context.Context, query string, md mode.Mode, passages []passage.Passage,
) (domain.Synthesis, error) {
	m.calls++
	if m.synthesizeFn != nil {
		return m.synthesizeFn(ctx, query, md, passages)
	}
	return domain.Synthesis{Answer: "synthesized answer"}, nil
}

type mockSuggester struct {
	suggestFn func(ctx context.Context, query string) ([]string, error)
}

func (m *mockSuggester) Suggest(ctx context.Context, query string) ([]string, error) {
	if m.suggestFn != nil {
		return m.suggestFn(ctx, query)
	}
	return []string{"What does this document cover?"}, nil
}

// --- Fixture ---

type fixture struct {
	repo     *mockRetriever
	corpus   *mockCorpus
	embed    *mockEmbedder
	synth    *mockSynthesizer
	suggest  *mockSuggester
	cache    ResultCache
	synonyms SynonymSource
}

func newFixture() *fixture {
	return &fixture{
		repo:    &mockRetriever{textOK: true},
		corpus:  &mockCorpus{},
		embed:   &mockEmbedder{},
		synth:   &mockSynthesizer{},
		suggest: &mockSuggester{},
	}
}

func (f *fixture) service(cfg Tunables) *Service {
	deps := Deps{
		Passages: f.repo,
		Corpus:   f.corpus,
		Cache:    f.cache,
		Embedder: f.embed,
		Synonyms: f.synonyms,
		Logger:   zap.NewNop(),
	}
	if f.synth != nil {
		deps.Synthesizer = f.synth
	}
	if f.suggest != nil {
		deps.Suggester = f.suggest
	}
	return New(deps, cfg)
}

// --- Helpers ---

func chunk(doc string, ordinal int, content string) passage.Passage {
	id := fmt.Sprintf("askdex:passage:%s:%d", doc, ordinal)
	return passage.Reconstruct(id, doc, ordinal, content)
}

func mustRequest(t *testing.T, query string, sc scope.Scope) request.Request {
	t.Helper()
	req, err := request.New(query, sc, 5, 0.3, 2, mode.Auto, true, true)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return req
}

package askdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/db"
	dbLocal "github.com/kailas-cloud/askdex/internal/db/local"
	dbRedis "github.com/kailas-cloud/askdex/internal/db/redis"
	"github.com/kailas-cloud/askdex/internal/domain"
	domfeedback "github.com/kailas-cloud/askdex/internal/domain/feedback"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
	corpusrepo "github.com/kailas-cloud/askdex/internal/repository/corpus"
	feedbackrepo "github.com/kailas-cloud/askdex/internal/repository/feedback"
	passagerepo "github.com/kailas-cloud/askdex/internal/repository/passage"
	"github.com/kailas-cloud/askdex/internal/repository/resultcache"
	llmTransport "github.com/kailas-cloud/askdex/internal/transport/llm"
	openaiEmb "github.com/kailas-cloud/askdex/internal/transport/openai"
	askuc "github.com/kailas-cloud/askdex/internal/usecase/ask"
	feedbackuc "github.com/kailas-cloud/askdex/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/askdex/internal/usecase/ingest"
	usageuc "github.com/kailas-cloud/askdex/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultCacheEntries     = 512
	defaultCacheTTL         = time.Hour
)

// Internal interfaces so tests can substitute the use cases.
type askUseCase interface {
	Ask(ctx context.Context, req request.Request) result.Result
}

type ingestUseCase interface {
	Ingest(ctx context.Context, documentID string, contents []string) (int, error)
	Document(ctx context.Context, documentID string) ([]passage.Passage, error)
	Delete(ctx context.Context, documentID string) (int, error)
}

type feedbackUseCase interface {
	Record(ctx context.Context, query string, sc scope.Scope, rating int) error
	List(ctx context.Context, limit int) ([]domfeedback.Record, error)
	Close() error
}

type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) []domusage.Report
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type cacheAdmin interface {
	Stats() resultcache.Stats
	InvalidateAll()
}

// engineEmbedder is the embedding capability the pipeline needs.
type engineEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// Client is the askdex SDK entry point.
type Client struct {
	store    db.Store
	ask      askUseCase
	ingest   ingestUseCase
	feedback feedbackUseCase
	usage    usageUseCase
	health   healthUseCase
	cache    cacheAdmin // nil when disabled
	obs      *observer
}

// New creates an askdex Client and prepares the store. The provided
// context covers the initial readiness check and index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: domain.DefaultVectorConfig().Dimensions,
		cacheMaxEntries:  defaultCacheEntries,
		cacheTTL:         defaultCacheTTL,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("askdex: store required (use WithRedis or WithLocal)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("askdex: store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "local":
		s, err := dbLocal.NewStore(dbLocal.Config{
			Path:     cfg.path,
			InMemory: cfg.path == "",
		})
		if err != nil {
			return nil, fmt.Errorf("askdex: create local store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("askdex: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("askdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	passageRepo := passagerepo.New(store)
	if err := passageRepo.EnsureIndex(ctx, cfg.vectorDimensions, cfg.hnswM, cfg.hnswEFConstruct); err != nil {
		return nil, fmt.Errorf("askdex: create passage index: %w", err)
	}
	corpusStore := corpusrepo.New(store)
	feedbackRepo := feedbackrepo.New(store)

	embedder := buildEmbedder(cfg)
	synthesizer, suggester, llmChecker, err := buildSynthesizer(cfg)
	if err != nil {
		return nil, err
	}

	var cache *resultcache.Cache
	if !cfg.cacheDisabled {
		cache, err = resultcache.New(cfg.cacheMaxEntries, cfg.cacheTTL)
		if err != nil {
			return nil, fmt.Errorf("askdex: create result cache: %w", err)
		}
	}

	askDeps := askuc.Deps{
		Passages:    passageRepo,
		Corpus:      corpusStore,
		Embedder:    embedder,
		Synthesizer: synthesizer,
		Suggester:   suggester,
		Synonyms:    askuc.StaticSynonyms(cfg.synonyms),
	}
	if cache != nil {
		askDeps.Cache = cache
	}
	askSvc := askuc.New(askDeps, askuc.Tunables{
		Alpha:                  cfg.engine.Alpha,
		Beta:                   cfg.engine.Beta,
		Fusion:                 cfg.engine.Fusion,
		SingleSignalPenalty:    cfg.engine.SingleSignalPenalty,
		ThresholdStep:          cfg.engine.ThresholdStep,
		StrictnessStep:         cfg.engine.StrictnessStep,
		FullDocumentChunkLimit: cfg.engine.FullDocumentChunkLimit,
		ContextBudgetTokens:    cfg.engine.ContextBudgetTokens,
		ShortQueryTokens:       cfg.engine.ShortQueryTokens,
		SuggestedQuestions:     cfg.engine.SuggestedQuestions,
	})

	var cacheInvalidator ingestuc.CacheInvalidator
	if cache != nil {
		cacheInvalidator = cache
	}
	ingestSvc := ingestuc.New(passageRepo, corpusStore, embedder, cacheInvalidator, nil)

	feedbackSvc, err := feedbackuc.New(feedbackRepo, cfg.feedbackWorkers, nil)
	if err != nil {
		return nil, fmt.Errorf("askdex: create feedback service: %w", err)
	}

	c := &Client{
		store:    store,
		ask:      askSvc,
		ingest:   ingestSvc,
		feedback: feedbackSvc,
		usage:    usageuc.New(nil, nil), // no budget tracking in the SDK
		health:   healthuc.New(store, nil, llmChecker),
		obs:      obs,
	}
	if cache != nil {
		c.cache = cache
	}
	return c, nil
}

// buildEmbedder picks the embedding provider: explicit Embedder first,
// then the built-in OpenAI transport, then a failing stub.
func buildEmbedder(cfg *clientConfig) engineEmbedder {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	if cfg.openai != nil && cfg.openai.EmbeddingModel != "" {
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.openai.APIKey,
			BaseURL:    cfg.openai.BaseURL,
			Model:      cfg.openai.EmbeddingModel,
			Dimensions: cfg.openai.Dimensions,
			Provider:   "openai",
			Logger:     zap.NewNop(),
		})
	}
	return noopEmbedder{}
}

// buildSynthesizer picks the synthesis provider. All nil when neither a
// custom Synthesizer nor an OpenAI chat model is configured.
func buildSynthesizer(cfg *clientConfig) (domain.Synthesizer, domain.Suggester, healthuc.LLMChecker, error) {
	var synthesizer domain.Synthesizer
	var suggester domain.Suggester
	var checker healthuc.LLMChecker

	if cfg.openai != nil && cfg.openai.ChatModel != "" {
		client, err := llmTransport.New(&llmTransport.Config{
			APIKey:   cfg.openai.APIKey,
			BaseURL:  cfg.openai.BaseURL,
			Model:    cfg.openai.ChatModel,
			Provider: "openai",
			Logger:   zap.NewNop(),
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("askdex: create llm client: %w", err)
		}
		synthesizer, suggester, checker = client, client, client
	}

	if cfg.synthesizer != nil {
		synthesizer = &synthesizerAdapter{inner: cfg.synthesizer}
	}
	if cfg.suggester != nil {
		suggester = &suggesterAdapter{inner: cfg.suggester}
	}
	return synthesizer, suggester, checker, nil
}

// Close releases the feedback pool and the store.
func (c *Client) Close() {
	if c.feedback != nil {
		_ = c.feedback.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// embedderAdapter wraps the public Embedder to satisfy the internal
// contracts, using native batching when available.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := a.inner.(BatchEmbedder); ok {
		r, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		return domain.BatchEmbeddingResult{
			Embeddings:   r.Embeddings,
			PromptTokens: r.PromptTokens,
			TotalTokens:  r.TotalTokens,
		}, nil
	}
	return domain.BatchFallback(ctx, a, texts)
}

// noopEmbedder returns an error on every call (used when no embedder
// is configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"askdex: embedder not configured (use WithEmbedder or WithOpenAI)",
	)
}

func (noopEmbedder) BatchEmbed(_ context.Context, _ []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{}, errors.New(
		"askdex: embedder not configured (use WithEmbedder or WithOpenAI)",
	)
}

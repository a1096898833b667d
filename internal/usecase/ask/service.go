// Package ask implements the question answering pipeline: routing,
// hybrid retrieval, the fallback chain, answer synthesis, and result
// caching.
package ask

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
	"github.com/kailas-cloud/askdex/internal/domain/search/strategy"
)

// Deps are the collaborators of the ask service. Synthesizer and
// Suggester may be nil when answer synthesis is disabled.
type Deps struct {
	Passages    Retriever
	Corpus      CorpusReader
	Cache       ResultCache
	Embedder    Embedder
	Synthesizer domain.Synthesizer
	Suggester   domain.Suggester
	Synonyms    SynonymSource
	Logger      *zap.Logger
}

// Service orchestrates one ask request end to end.
type Service struct {
	repo     Retriever
	corpus   CorpusReader
	cache    ResultCache
	embed    Embedder
	synth    domain.Synthesizer
	suggest  domain.Suggester
	synonyms SynonymSource
	router   *Router
	cfg      Tunables
	log      *zap.Logger

	levels []level
}

// New creates the ask service.
func New(deps Deps, cfg Tunables) *Service {
	if deps.Synonyms == nil {
		deps.Synonyms = StaticSynonyms(nil)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	cfg = cfg.normalized()

	s := &Service{
		repo:     deps.Passages,
		corpus:   deps.Corpus,
		cache:    deps.Cache,
		embed:    deps.Embedder,
		synth:    deps.Synthesizer,
		suggest:  deps.Suggester,
		synonyms: deps.Synonyms,
		router:   NewRouter(cfg),
		cfg:      cfg,
		log:      deps.Logger,
	}
	s.levels = newLevels(s)
	return s
}

// Ask answers a validated request. External failures are absorbed by
// the fallback chain, so the caller always receives a well-formed
// result; total failure yields method "no_results" with suggested
// questions.
func (s *Service) Ask(ctx context.Context, req request.Request) result.Result {
	start := time.Now()

	if req.UseCache() && s.cache != nil {
		if res, ok := s.cache.Get(req); ok {
			return res.AsCacheHit(time.Since(start).Milliseconds())
		}
	}

	stats := s.scopeStats(ctx, req.Scope())

	st := &chainState{
		req:    req,
		textOK: s.repo.SupportsTextSearch(ctx),
	}
	pl := s.router.Classify(req, stats)
	if pl.Strategy() != strategy.DocumentFull {
		pl = pl.WithStrategy(effectiveStrategy(pl.Strategy(), st.textOK))
	}
	st.plan = pl
	st.threshold = pl.Threshold()

	var (
		out   outcome
		depth int
	)
	if pl.Strategy() == strategy.DocumentFull {
		var ok bool
		out, ok = s.fullDocument(ctx, req)
		if !ok {
			st.plan = pl.WithStrategy(effectiveStrategy(strategy.Hybrid, st.textOK))
			out, depth = s.resolve(ctx, st)
		}
	} else {
		out, depth = s.resolve(ctx, st)
	}

	res := s.finish(ctx, req, out, depth, stats).
		WithElapsedMS(time.Since(start).Milliseconds())

	if req.UseCache() && s.cache != nil {
		s.cache.Put(req, res)
	}
	return res
}

// finish runs answer synthesis where requested and assembles the final
// result with its locally computed confidence.
func (s *Service) finish(
	ctx context.Context, req request.Request, out outcome, depth int, stats domain.CorpusStats,
) result.Result {
	res := result.New(out.passages, out.method)

	var answer string
	if s.shouldSynthesize(req, out) {
		syn, err := s.synth.Synthesize(ctx, req.Query(), req.Mode(), out.passages)
		if err != nil {
			s.log.Warn("answer synthesis failed", zap.Error(err))
		} else {
			answer = syn.Answer
			res = res.WithAnswer(answer)
		}
	}

	if out.method == result.MethodNoResults {
		res = res.WithSuggestions(s.suggestions(ctx, req.Query()))
	}

	conf := computeConfidence(out.passages, answer) * depthFactor(depth)
	return res.WithConfidence(conf).WithTotalSearched(stats.ChunkCount)
}

func (s *Service) shouldSynthesize(req request.Request, out outcome) bool {
	return s.synth != nil &&
		req.IncludeAnswer() &&
		req.Strictness() < request.MaxStrictness &&
		len(out.passages) > 0
}

// suggestions asks the provider for follow-up questions, falling back
// to the configured static list.
func (s *Service) suggestions(ctx context.Context, query string) []string {
	if s.suggest != nil {
		qs, err := s.suggest.Suggest(ctx, query)
		if err != nil {
			s.log.Warn("question suggestion failed", zap.Error(err))
		} else if len(qs) > 0 {
			return qs
		}
	}
	return s.cfg.SuggestedQuestions
}

// fullDocument bypasses retrieval and returns every chunk of the scoped
// document in reading order.
func (s *Service) fullDocument(ctx context.Context, req request.Request) (outcome, bool) {
	chunks, err := s.repo.Chunks(ctx, req.Scope().DocumentID())
	if err != nil {
		s.log.Warn("full document read failed",
			zap.String("document_id", req.Scope().DocumentID()), zap.Error(err))
		return outcome{}, false
	}

	passages := make([]passage.Passage, len(chunks))
	for i := range chunks {
		passages[i] = chunks[i].WithFused(1)
	}
	return outcome{passages: passages, method: result.MethodDocumentFull}, true
}

// scopeStats loads chunk statistics for the request scope. Failures are
// logged and return zero stats, which routes to the default strategy.
func (s *Service) scopeStats(ctx context.Context, sc scope.Scope) domain.CorpusStats {
	if sc.IsAll() {
		stats, err := s.corpus.Stats(ctx)
		if err != nil {
			s.log.Warn("corpus stats unavailable", zap.Error(err))
			return domain.CorpusStats{}
		}
		return stats
	}

	chunks, err := s.corpus.DocumentChunks(ctx, sc.DocumentID())
	if err != nil {
		s.log.Warn("document stats unavailable", zap.Error(err))
		return domain.CorpusStats{}
	}
	chars, err := s.corpus.DocumentChars(ctx, sc.DocumentID())
	if err != nil {
		s.log.Warn("document stats unavailable", zap.Error(err))
		return domain.CorpusStats{ChunkCount: chunks}
	}

	avg := 0
	if chunks > 0 {
		avg = chars / chunks
	}
	return domain.CorpusStats{ChunkCount: chunks, AvgChunkLen: avg}
}

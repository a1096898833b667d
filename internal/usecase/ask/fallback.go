package ask

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/plan"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/strategy"
)

// chainState carries the working set of one ask request through the
// fallback levels.
type chainState struct {
	req    request.Request
	plan   plan.Plan
	textOK bool

	// threshold is lowered in place as levels relax it.
	threshold float64

	// embedding caches the query vector across levels that share a query.
	embedQuery string
	embedding  []float32

	// best remembers the highest-fused sub-threshold passage seen at any
	// level, for the terminal rescue.
	best       []passage.Passage
	bestMethod string
}

// outcome is what a fallback level produced.
type outcome struct {
	passages []passage.Passage
	method   string
}

// level is one fallback strategy. attempt reports ok=false when the
// level produced nothing and the chain should move on.
type level interface {
	name() string
	attempt(ctx context.Context, st *chainState) (outcome, bool)
}

// resolve walks the fallback levels in order and returns the first
// outcome plus the zero-based depth that produced it. The terminal
// level always returns.
func (s *Service) resolve(ctx context.Context, st *chainState) (outcome, int) {
	last := len(s.levels) - 1
	for i, lvl := range s.levels {
		if ctx.Err() != nil && i < last {
			continue // canceled; only the terminal level may still run
		}
		out, ok := lvl.attempt(ctx, st)
		if !ok {
			continue
		}
		if i > 0 {
			s.log.Info("fallback level answered",
				zap.String("level", lvl.name()),
				zap.String("method", out.method),
				zap.Int("passages", len(out.passages)))
		}
		return out, i
	}
	return outcome{method: result.MethodNoResults}, last
}

// retrieve runs one strategy and returns the fused candidate list,
// sorted descending. Hybrid degrades to the surviving arm when one
// engine fails; it errors only when no arm produced anything.
func (s *Service) retrieve(
	ctx context.Context, st *chainState, query string, strat strategy.Strategy,
) ([]passage.Passage, error) {
	topK := st.plan.TopK()
	sc := st.req.Scope()

	switch strat {
	case strategy.VectorOnly:
		vector, err := s.queryVector(ctx, st, query)
		if err != nil {
			return nil, err
		}
		vec, err := s.repo.SearchVector(ctx, vector, sc, topK)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		return fuseVectorOnly(vec), nil

	case strategy.FtsOnly:
		lex, err := s.repo.SearchText(ctx, query, sc, topK)
		if err != nil {
			return nil, fmt.Errorf("text search: %w", err)
		}
		return fuseTextOnly(lex), nil

	case strategy.Hybrid:
		var (
			vec, lex       []passage.Passage
			vecErr, lexErr error
		)
		var g errgroup.Group
		g.Go(func() error {
			vector, err := s.queryVector(ctx, st, query)
			if err == nil {
				vec, err = s.repo.SearchVector(ctx, vector, sc, topK)
			}
			vecErr = err
			return nil
		})
		g.Go(func() error {
			lex, lexErr = s.repo.SearchText(ctx, query, sc, topK)
			return nil
		})
		_ = g.Wait() // arm errors are collected separately

		switch {
		case vecErr != nil && lexErr != nil:
			return nil, fmt.Errorf("hybrid search: %w", errors.Join(vecErr, lexErr))
		case vecErr != nil:
			s.log.Warn("hybrid vector arm failed", zap.Error(vecErr))
			return fuseTextOnly(lex), nil
		case lexErr != nil:
			s.log.Warn("hybrid text arm failed", zap.Error(lexErr))
			return fuseVectorOnly(vec), nil
		}
		return fusePassages(vec, lex, s.cfg), nil
	}

	return nil, fmt.Errorf("unsupported strategy: %s", strat)
}

// queryVector embeds the query, reusing the vector cached in the state
// when the query has not changed since the last level.
func (s *Service) queryVector(ctx context.Context, st *chainState, query string) ([]float32, error) {
	if st.embedding != nil && st.embedQuery == query {
		return st.embedding, nil
	}
	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	st.embedQuery, st.embedding = query, res.Embedding
	return res.Embedding, nil
}

// keepAboveThreshold filters inclusively at the current threshold and
// caps at topK. When nothing passes, the top rejected candidate is
// remembered for the terminal level.
func (st *chainState) keepAboveThreshold(fused []passage.Passage, method string) []passage.Passage {
	kept := make([]passage.Passage, 0, len(fused))
	for _, p := range fused {
		if p.Fused() >= st.threshold {
			kept = append(kept, p)
		}
	}
	if len(kept) > st.plan.TopK() {
		kept = kept[:st.plan.TopK()]
	}

	if len(kept) == 0 && len(fused) > 0 {
		top := fused[0]
		if len(st.best) == 0 || top.Fused() > st.best[0].Fused() {
			st.best = []passage.Passage{top}
			st.bestMethod = method
		}
	}
	return kept
}

// effectiveStrategy downgrades text-dependent strategies when the store
// has no full-text capability.
func effectiveStrategy(strat strategy.Strategy, textOK bool) strategy.Strategy {
	if !textOK && strat.UsesText() {
		return strategy.VectorOnly
	}
	return strat
}

// methodFor names the retrieval method a strategy reports.
func methodFor(strat strategy.Strategy) string {
	switch strat {
	case strategy.VectorOnly:
		return result.MethodVectorOnly
	case strategy.FtsOnly:
		return result.MethodFtsOnly
	case strategy.DocumentFull:
		return result.MethodDocumentFull
	default:
		return result.MethodHybrid
	}
}

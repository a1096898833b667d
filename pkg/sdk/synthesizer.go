package askdex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
)

// Synthesis is the answer a Synthesizer produced from passages.
// Citations hold IDs of the passages actually used.
type Synthesis struct {
	Answer    string
	Citations []string
}

// Synthesizer generates an answer from retrieved passages. answerMode
// is one of the Mode constants.
type Synthesizer interface {
	Synthesize(ctx context.Context, query, answerMode string, passages []Passage) (Synthesis, error)
}

// Suggester proposes follow-up questions when retrieval found nothing
// useful.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

// synthesizerAdapter wraps a public Synthesizer to satisfy the internal
// contract.
type synthesizerAdapter struct {
	inner Synthesizer
}

func (a *synthesizerAdapter) Synthesize(
	ctx context.Context, query string, m mode.Mode, passages []passage.Passage,
) (domain.Synthesis, error) {
	pub := make([]Passage, 0, len(passages))
	for _, p := range passages {
		pub = append(pub, fromInternalPassage(p))
	}

	syn, err := a.inner.Synthesize(ctx, query, string(m), pub)
	if err != nil {
		return domain.Synthesis{}, fmt.Errorf("synthesize: %w", err)
	}
	return domain.Synthesis{Answer: syn.Answer, Citations: syn.Citations}, nil
}

// suggesterAdapter wraps a public Suggester.
type suggesterAdapter struct {
	inner Suggester
}

func (a *suggesterAdapter) Suggest(ctx context.Context, query string) ([]string, error) {
	qs, err := a.inner.Suggest(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	return qs, nil
}

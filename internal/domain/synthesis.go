package domain

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
)

// Synthesis is the raw output of an answer synthesis call.
// Confidence is NOT part of it: it is computed locally from the passages,
// never trusted from the provider.
type Synthesis struct {
	Answer           string
	Citations        []string // passage IDs the provider claims to have used
	PromptTokens     int
	CompletionTokens int
}

// Synthesizer is the shared answer generation contract between layers.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, m mode.Mode, passages []passage.Passage) (Synthesis, error)
}

// Suggester proposes follow-up questions when retrieval found nothing useful.
type Suggester interface {
	Suggest(ctx context.Context, query string) ([]string, error)
}

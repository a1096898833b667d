package ask

import (
	"math"

	"github.com/kailas-cloud/askdex/internal/domain/passage"
)

// fullSupportCount is the passage count at which quantity stops adding
// confidence.
const fullSupportCount = 3

// computeConfidence scores how well the passages support the answer,
// from their count, their average fused score, and the answer's lexical
// overlap with them. Purely local; a provider's own confidence claim is
// never trusted.
func computeConfidence(passages []passage.Passage, answer string) float64 {
	if len(passages) == 0 {
		return 0
	}

	var sum float64
	for i := range passages {
		sum += passages[i].Fused()
	}
	avg := sum / float64(len(passages))

	countFactor := math.Min(1, float64(len(passages))/fullSupportCount)
	conf := avg * (0.6 + 0.4*countFactor)

	if answer != "" {
		conf *= groundingFactor(answer, passages)
	}
	return clamp01(conf)
}

// groundingFactor is the share of the answer's significant terms that
// appear in the passages. Near-zero overlap despite non-empty passages
// is the hallucination signal and crushes the confidence.
func groundingFactor(answer string, passages []passage.Passage) float64 {
	terms := significantTokens(answer)
	if len(terms) == 0 {
		return 1
	}

	vocab := make(map[string]struct{})
	for i := range passages {
		for _, tok := range significantTokens(passages[i].Content()) {
			vocab[tok] = struct{}{}
		}
	}

	matched := 0
	for _, term := range terms {
		if _, ok := vocab[term]; ok {
			matched++
		}
	}
	overlap := float64(matched) / float64(len(terms))
	return 0.1 + 0.9*overlap
}

// depthFactor discounts confidence by how deep the fallback chain went,
// so a late rescue can never outrank a first-attempt hit on the same
// passages.
func depthFactor(depth int) float64 {
	f := 1 - 0.15*float64(depth)
	if f < 0.1 {
		return 0.1
	}
	return f
}

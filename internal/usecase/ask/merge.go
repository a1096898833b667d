package ask

import (
	"sort"

	"github.com/kailas-cloud/askdex/internal/domain/passage"
)

// fusePassages combines the two retrieval signals into one ranked,
// deduplicated list with fused scores in [0,1].
func fusePassages(vec, lex []passage.Passage, cfg Tunables) []passage.Passage {
	if cfg.Fusion == FusionRRF {
		return fuseRRF(vec, lex)
	}
	return fuseWeighted(vec, lex, cfg)
}

// fuseWeighted min-max normalizes each score list independently, takes
// alpha*sim + beta*lex for passages present in both, and applies the
// single-signal penalty to passages only one engine found. Duplicates
// within a list keep their highest occurrence.
func fuseWeighted(vec, lex []passage.Passage, cfg Tunables) []passage.Passage {
	simNorm := normalize(similarityScores(vec))
	lexNorm := normalize(lexicalScores(lex))

	type candidate struct {
		p   passage.Passage
		sim *float64
		lex *float64
	}
	merged := make(map[string]*candidate, len(vec)+len(lex))

	for i := range vec {
		s := simNorm[i]
		c, ok := merged[vec[i].ID()]
		if !ok {
			merged[vec[i].ID()] = &candidate{p: vec[i], sim: &s}
			continue
		}
		if c.sim == nil || s > *c.sim {
			c.sim = &s
		}
	}

	for i := range lex {
		s := lexNorm[i]
		c, ok := merged[lex[i].ID()]
		if !ok {
			merged[lex[i].ID()] = &candidate{p: lex[i], lex: &s}
			continue
		}
		if c.lex == nil || s > *c.lex {
			c.lex = &s
		}
		// carry the raw lexical score onto the passage kept from the vector arm
		if raw := lex[i].Lexical(); raw != nil && c.p.Lexical() == nil {
			c.p = c.p.WithLexical(*raw)
		}
	}

	out := make([]passage.Passage, 0, len(merged))
	for _, c := range merged {
		var fused float64
		switch {
		case c.sim != nil && c.lex != nil:
			fused = cfg.Alpha**c.sim + cfg.Beta**c.lex
		case c.sim != nil:
			fused = cfg.SingleSignalPenalty * *c.sim
		default:
			fused = cfg.SingleSignalPenalty * *c.lex
		}
		out = append(out, c.p.WithFused(clamp01(fused)))
	}

	sortByFused(out)
	return out
}

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF ranks by reciprocal rank: score(d) = sum of 1/(k + rank_i(d))
// over the rankings d appears in. Raw RRF scores live in a narrow band
// near zero, so the fused list is min-max rescaled to keep the caller's
// threshold meaningful.
func fuseRRF(vec, lex []passage.Passage) []passage.Passage {
	type candidate struct {
		p     passage.Passage
		score float64
	}
	merged := make(map[string]*candidate, len(vec)+len(lex))

	for rank := range vec {
		merged[vec[rank].ID()] = &candidate{p: vec[rank], score: 1.0 / float64(rrfK+rank+1)}
	}
	for rank := range lex {
		s := 1.0 / float64(rrfK+rank+1)
		c, ok := merged[lex[rank].ID()]
		if !ok {
			merged[lex[rank].ID()] = &candidate{p: lex[rank], score: s}
			continue
		}
		c.score += s
		if raw := lex[rank].Lexical(); raw != nil && c.p.Lexical() == nil {
			c.p = c.p.WithLexical(*raw)
		}
	}

	candidates := make([]candidate, 0, len(merged))
	scores := make([]float64, 0, len(merged))
	for _, c := range merged {
		candidates = append(candidates, *c)
		scores = append(scores, c.score)
	}
	norm := normalize(scores)

	out := make([]passage.Passage, len(candidates))
	for i, c := range candidates {
		out[i] = c.p.WithFused(norm[i])
	}
	sortByFused(out)
	return out
}

// fuseVectorOnly uses the raw cosine similarity as the fused score; it
// is already in [0,1].
func fuseVectorOnly(vec []passage.Passage) []passage.Passage {
	out := make([]passage.Passage, len(vec))
	for i := range vec {
		var s float64
		if sim := vec[i].Similarity(); sim != nil {
			s = *sim
		}
		out[i] = vec[i].WithFused(clamp01(s))
	}
	sortByFused(out)
	return out
}

// fuseTextOnly min-max normalizes the engine-relative lexical scores.
func fuseTextOnly(lex []passage.Passage) []passage.Passage {
	norm := normalize(lexicalScores(lex))
	out := make([]passage.Passage, len(lex))
	for i := range lex {
		out[i] = lex[i].WithFused(norm[i])
	}
	sortByFused(out)
	return out
}

// normalize min-max scales scores to [0,1]. Degenerate lists, a single
// element or zero spread, map to all ones.
func normalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}

	out := make([]float64, len(scores))
	if hi == lo {
		for i := range out {
			out[i] = 1
		}
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / (hi - lo)
	}
	return out
}

// sortByFused orders descending by fused score; ties break by ascending
// ordinal to prefer earlier context.
func sortByFused(list []passage.Passage) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Fused() != list[j].Fused() {
			return list[i].Fused() > list[j].Fused()
		}
		return list[i].Ordinal() < list[j].Ordinal()
	})
}

func similarityScores(list []passage.Passage) []float64 {
	out := make([]float64, len(list))
	for i := range list {
		if s := list[i].Similarity(); s != nil {
			out[i] = *s
		}
	}
	return out
}

func lexicalScores(list []passage.Passage) []float64 {
	out := make([]float64, len(list))
	for i := range list {
		if s := list[i].Lexical(); s != nil {
			out[i] = *s
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

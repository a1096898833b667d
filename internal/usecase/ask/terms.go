package ask

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords are dropped during token counting, query simplification,
// and answer grounding.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "by": {}, "from": {}, "as": {}, "and": {},
	"or": {}, "not": {}, "no": {}, "what": {}, "which": {}, "who": {},
	"whose": {}, "when": {}, "where": {}, "why": {}, "how": {}, "does": {},
	"do": {}, "did": {}, "can": {}, "could": {}, "should": {}, "would": {},
	"will": {}, "shall": {}, "may": {}, "might": {}, "must": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "it": {}, "its": {}, "their": {},
	"there": {}, "about": {}, "into": {}, "over": {}, "under": {},
	"between": {}, "within": {}, "per": {},
}

// tokenize lowercases text and splits it on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// significantTokens drops stop words and tokens shorter than three runes.
func significantTokens(s string) []string {
	var out []string
	for _, tok := range tokenize(s) {
		if len(tok) < 3 {
			continue
		}
		if _, ok := stopWords[tok]; ok {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// expandQuery appends synonym expansions for every table phrase found
// in the query. Returns the query unchanged when nothing matches.
func expandQuery(query string, synonyms map[string][]string) string {
	if len(synonyms) == 0 {
		return query
	}
	lower := strings.ToLower(query)

	phrases := make([]string, 0, len(synonyms))
	for p := range synonyms {
		phrases = append(phrases, p)
	}
	sort.Strings(phrases)

	var extra []string
	seen := make(map[string]struct{})
	for _, phrase := range phrases {
		if !strings.Contains(lower, strings.ToLower(phrase)) {
			continue
		}
		for _, alt := range synonyms[phrase] {
			if strings.Contains(lower, strings.ToLower(alt)) {
				continue
			}
			if _, dup := seen[alt]; dup {
				continue
			}
			seen[alt] = struct{}{}
			extra = append(extra, alt)
		}
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}

// maxKeywords bounds the simplified query length.
const maxKeywords = 5

// simplifyQuery reduces the query to its longest significant keywords,
// preserving their original order. Returns "" when nothing survives.
func simplifyQuery(query string) string {
	tokens := significantTokens(query)
	if len(tokens) <= maxKeywords {
		return strings.Join(tokens, " ")
	}

	type keyword struct {
		pos int
		tok string
	}
	ranked := make([]keyword, len(tokens))
	for i, t := range tokens {
		ranked[i] = keyword{pos: i, tok: t}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].tok) > len(ranked[j].tok)
	})
	ranked = ranked[:maxKeywords]
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].pos < ranked[j].pos })

	parts := make([]string, len(ranked))
	for i, k := range ranked {
		parts[i] = k.tok
	}
	return strings.Join(parts, " ")
}

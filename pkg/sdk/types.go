package askdex

import (
	"time"

	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// Answer modes.
const (
	ModeAuto         = string(mode.Auto)
	ModeDirect       = string(mode.Direct)
	ModeSummary      = string(mode.Summary)
	ModeQuote        = string(mode.Quote)
	ModeList         = string(mode.List)
	ModeTable        = string(mode.Table)
	ModeDocumentFull = string(mode.DocumentFull)
)

// Feedback ratings.
const (
	RatingUp   = 1
	RatingDown = -1
)

// AskRequest describes one question. Pointer fields distinguish
// "unset" (use the default) from an explicit zero.
type AskRequest struct {
	Query         string
	DocumentID    string // empty means the whole corpus
	TopK          int
	Threshold     *float64
	Strictness    *int
	Mode          string
	IncludeAnswer *bool
	UseCache      *bool
}

// Chunk is one retrieved passage with its scores.
type Chunk struct {
	ID           string
	DocumentID   string
	Ordinal      int
	Content      string
	Similarity   *float64
	LexicalScore *float64
	FusedScore   float64
}

// AskResult is the engine's answer to one request.
type AskResult struct {
	Answer             *string
	Chunks             []Chunk
	SuggestedQuestions []string
	Method             string
	Confidence         float64
	CacheHit           bool
	ElapsedMS          int64
	TotalSearched      int
}

// Passage is a stored document chunk.
type Passage struct {
	ID         string
	DocumentID string
	Ordinal    int
	Content    string
}

// FeedbackRecord is a stored answer rating.
type FeedbackRecord struct {
	ID         string
	Query      string
	DocumentID string // empty for corpus-wide feedback
	Rating     int
	CreatedAt  time.Time
}

// CacheStats reports result cache effectiveness.
type CacheStats struct {
	Entries int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component name to "ok"/"error"
}

func toInternalRequest(r AskRequest) (request.Request, error) {
	sc := scope.All()
	if r.DocumentID != "" {
		sc = scope.Document(r.DocumentID)
	}

	threshold := request.DefaultThreshold
	if r.Threshold != nil {
		threshold = *r.Threshold
	}
	strictness := request.DefaultStrictness
	if r.Strictness != nil {
		strictness = *r.Strictness
	}
	includeAnswer := true
	if r.IncludeAnswer != nil {
		includeAnswer = *r.IncludeAnswer
	}
	useCache := true
	if r.UseCache != nil {
		useCache = *r.UseCache
	}

	return request.New(
		r.Query, sc, r.TopK, threshold, strictness,
		mode.Mode(r.Mode), includeAnswer, useCache,
	)
}

func fromInternalResult(res result.Result) AskResult {
	chunks := make([]Chunk, 0, len(res.Passages()))
	for _, p := range res.Passages() {
		chunks = append(chunks, Chunk{
			ID:           p.ID(),
			DocumentID:   p.DocumentID(),
			Ordinal:      p.Ordinal(),
			Content:      p.Content(),
			Similarity:   p.Similarity(),
			LexicalScore: p.Lexical(),
			FusedScore:   p.Fused(),
		})
	}
	return AskResult{
		Answer:             res.Answer(),
		Chunks:             chunks,
		SuggestedQuestions: res.Suggestions(),
		Method:             res.MethodUsed(),
		Confidence:         res.Confidence(),
		CacheHit:           res.CacheHit(),
		ElapsedMS:          res.ElapsedMS(),
		TotalSearched:      res.TotalSearched(),
	}
}

func fromInternalPassage(p passage.Passage) Passage {
	return Passage{
		ID:         p.ID(),
		DocumentID: p.DocumentID(),
		Ordinal:    p.Ordinal(),
		Content:    p.Content(),
	}
}

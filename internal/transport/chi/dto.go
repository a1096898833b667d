package chi

import (
	"time"

	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
)

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest           = "bad_request"
	codeValidationFailed     = "validation_failed"
	codeDocumentNotFound     = "document_not_found"
	codeRateLimited          = "rate_limited"
	codeTokenQuotaExceeded   = "token_quota_exceeded"
	codeEmbeddingUnavailable = "embedding_unavailable"
	codeLLMUnavailable       = "llm_unavailable"
	codeStoreUnavailable     = "store_unavailable"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// askRequest is the POST /api/v1/ask body. Pointer fields distinguish
// "absent" from an explicit zero so defaults apply correctly.
type askRequest struct {
	Query         string   `json:"query"`
	DocumentID    *string  `json:"document_id"`
	TopK          int      `json:"top_k"`
	Threshold     *float64 `json:"threshold"`
	Strictness    *int     `json:"strictness"`
	Mode          string   `json:"mode"`
	IncludeAnswer *bool    `json:"include_answer"`
	UseCache      *bool    `json:"use_cache"`
}

type chunkMetadata struct {
	Ordinal      int      `json:"ordinal"`
	LexicalScore *float64 `json:"lexical_score,omitempty"`
	FusedScore   float64  `json:"fused_score"`
}

type chunkResponse struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	DocumentID string        `json:"document_id"`
	Similarity *float64      `json:"similarity"`
	Metadata   chunkMetadata `json:"metadata"`
}

type askMetadata struct {
	MethodUsed          string  `json:"method_used"`
	ExecutionTimeMS     int64   `json:"execution_time_ms"`
	CacheHit            bool    `json:"cache_hit"`
	TotalChunksSearched int     `json:"total_chunks_searched"`
	Confidence          float64 `json:"confidence"`
}

type askResponse struct {
	Answer             *string         `json:"answer"`
	Chunks             []chunkResponse `json:"chunks"`
	SuggestedQuestions []string        `json:"suggested_questions,omitempty"`
	Metadata           askMetadata     `json:"metadata"`
}

func askResponseFrom(res result.Result) askResponse {
	chunks := make([]chunkResponse, 0, len(res.Passages()))
	for _, p := range res.Passages() {
		chunks = append(chunks, chunkResponse{
			ID:         p.ID(),
			Content:    p.Content(),
			DocumentID: p.DocumentID(),
			Similarity: p.Similarity(),
			Metadata: chunkMetadata{
				Ordinal:      p.Ordinal(),
				LexicalScore: p.Lexical(),
				FusedScore:   p.Fused(),
			},
		})
	}
	return askResponse{
		Answer:             res.Answer(),
		Chunks:             chunks,
		SuggestedQuestions: res.Suggestions(),
		Metadata: askMetadata{
			MethodUsed:          res.MethodUsed(),
			ExecutionTimeMS:     res.ElapsedMS(),
			CacheHit:            res.CacheHit(),
			TotalChunksSearched: res.TotalSearched(),
			Confidence:          res.Confidence(),
		},
	}
}

// ingestRequest is the PUT /api/v1/documents/{id} body.
type ingestRequest struct {
	Passages []string `json:"passages"`
}

type ingestResponse struct {
	DocumentID string `json:"document_id"`
	Stored     int    `json:"stored"`
}

type documentChunk struct {
	ID      string `json:"id"`
	Ordinal int    `json:"ordinal"`
	Content string `json:"content"`
}

type documentResponse struct {
	DocumentID string          `json:"document_id"`
	Passages   []documentChunk `json:"passages"`
}

func documentResponseFrom(documentID string, passages []passage.Passage) documentResponse {
	chunks := make([]documentChunk, 0, len(passages))
	for _, p := range passages {
		chunks = append(chunks, documentChunk{ID: p.ID(), Ordinal: p.Ordinal(), Content: p.Content()})
	}
	return documentResponse{DocumentID: documentID, Passages: chunks}
}

type deleteResponse struct {
	DocumentID string `json:"document_id"`
	Deleted    int    `json:"deleted"`
}

// feedbackRequest is the POST /api/v1/feedback body.
type feedbackRequest struct {
	Query      string  `json:"query"`
	DocumentID *string `json:"document_id"`
	Rating     int     `json:"rating"`
}

type feedbackItem struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	DocumentID *string   `json:"document_id"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

type feedbackListResponse struct {
	Items []feedbackItem `json:"items"`
}

type cacheStatsResponse struct {
	Entries int     `json:"entry_count"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

type usageBudget struct {
	TokensLimit     int        `json:"tokens_limit"`
	TokensRemaining int        `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

type usageProvider struct {
	Provider string      `json:"provider"`
	Tokens   int         `json:"tokens"`
	Budget   usageBudget `json:"budget"`
}

type usageResponse struct {
	Period        string          `json:"period"`
	PeriodStartAt *time.Time      `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time      `json:"period_end_at,omitempty"`
	Providers     []usageProvider `json:"providers"`
}

func usageResponseFrom(period domusage.Period, reports []domusage.Report) usageResponse {
	resp := usageResponse{Period: string(period), Providers: make([]usageProvider, 0, len(reports))}
	for i := range reports {
		r := &reports[i]
		if resp.PeriodStartAt == nil && r.PeriodStart() > 0 {
			start := time.UnixMilli(r.PeriodStart()).UTC()
			end := time.UnixMilli(r.PeriodEnd()).UTC()
			resp.PeriodStartAt = &start
			resp.PeriodEndAt = &end
		}

		b := usageBudget{
			TokensLimit:     r.Budget().TokensLimit(),
			TokensRemaining: r.Budget().TokensRemaining(),
			IsExhausted:     r.Budget().IsExhausted(),
		}
		if r.Budget().ResetsAt() > 0 {
			resetsAt := time.UnixMilli(r.Budget().ResetsAt()).UTC()
			b.ResetsAt = &resetsAt
		}

		resp.Providers = append(resp.Providers, usageProvider{
			Provider: r.Provider(),
			Tokens:   r.Metrics().Tokens(),
			Budget:   b,
		})
	}
	return resp
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

package askdex

import (
	"context"
	"errors"
	"testing"
	"time"

	domfeedback "github.com/kailas-cloud/askdex/internal/domain/feedback"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
	usagebudget "github.com/kailas-cloud/askdex/internal/domain/usage/budget"
	usagemetrics "github.com/kailas-cloud/askdex/internal/domain/usage/metrics"
	"github.com/kailas-cloud/askdex/internal/repository/resultcache"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
)

func newTestClient() (*Client, *mockAskUC, *mockIngestUC, *mockFeedbackUC) {
	ask := &mockAskUC{}
	ingest := &mockIngestUC{}
	feedback := &mockFeedbackUC{}
	c := &Client{
		ask:      ask,
		ingest:   ingest,
		feedback: feedback,
		health: &mockHealthUC{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckOK},
		}},
	}
	return c, ask, ingest, feedback
}

func TestNew_RequiresStore(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("expected error without WithRedis or WithLocal")
	}
}

func TestAsk(t *testing.T) {
	c, ask, _, _ := newTestClient()
	ask.askFn = func(_ context.Context, _ request.Request) result.Result {
		p := passage.Reconstruct("askdex:passage:d1:0", "d1", 0, "termination clause").
			WithSimilarity(0.9).WithFused(0.88)
		return result.New([]passage.Passage{p}, result.MethodHybrid).
			WithAnswer("30 days.").
			WithConfidence(0.8)
	}

	res, err := c.Ask(context.Background(), AskRequest{Query: "termination notice?"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer == nil || *res.Answer != "30 days." {
		t.Errorf("answer = %v", res.Answer)
	}
	if len(res.Chunks) != 1 || res.Chunks[0].DocumentID != "d1" {
		t.Errorf("chunks = %+v", res.Chunks)
	}
	if res.Method != result.MethodHybrid || res.Confidence != 0.8 {
		t.Errorf("method/confidence = %s/%g", res.Method, res.Confidence)
	}
}

func TestAsk_AppliesDefaults(t *testing.T) {
	c, ask, _, _ := newTestClient()

	if _, err := c.Ask(context.Background(), AskRequest{Query: "q"}); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	req := ask.lastReq
	if req.TopK() != request.DefaultTopK {
		t.Errorf("topK = %d", req.TopK())
	}
	if req.Threshold() != request.DefaultThreshold {
		t.Errorf("threshold = %g", req.Threshold())
	}
	if !req.IncludeAnswer() || !req.UseCache() {
		t.Error("include answer and use cache must default to true")
	}
	if !req.Scope().IsAll() {
		t.Error("scope must default to the whole corpus")
	}
}

func TestAsk_DocumentScopeAndOverrides(t *testing.T) {
	c, ask, _, _ := newTestClient()

	threshold := 0.0
	useCache := false
	_, err := c.Ask(context.Background(), AskRequest{
		Query:      "q",
		DocumentID: "d7",
		Threshold:  &threshold,
		UseCache:   &useCache,
	})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	req := ask.lastReq
	if req.Scope().DocumentID() != "d7" {
		t.Errorf("scope = %s", req.Scope().String())
	}
	if req.Threshold() != 0 {
		t.Errorf("explicit zero threshold lost: %g", req.Threshold())
	}
	if req.UseCache() {
		t.Error("use cache override lost")
	}
}

func TestAsk_InvalidRequest(t *testing.T) {
	c, _, _, _ := newTestClient()

	if _, err := c.Ask(context.Background(), AskRequest{Query: ""}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestIngestDocument(t *testing.T) {
	c, _, ingest, _ := newTestClient()
	ingest.ingestFn = func(_ context.Context, documentID string, contents []string) (int, error) {
		if documentID != "d1" || len(contents) != 2 {
			t.Errorf("ingest args = %q/%d", documentID, len(contents))
		}
		return 2, nil
	}

	stored, err := c.IngestDocument(context.Background(), "d1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if stored != 2 {
		t.Errorf("stored = %d", stored)
	}
}

func TestDocument_NotFound(t *testing.T) {
	c, _, ingest, _ := newTestClient()
	ingest.documentFn = func(_ context.Context, _ string) ([]passage.Passage, error) {
		return nil, ErrDocumentNotFound
	}

	if _, err := c.Document(context.Background(), "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDeleteDocument(t *testing.T) {
	c, _, ingest, _ := newTestClient()
	ingest.deleteFn = func(_ context.Context, _ string) (int, error) { return 3, nil }

	deleted, err := c.DeleteDocument(context.Background(), "d1")
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d", deleted)
	}
}

func TestFeedback(t *testing.T) {
	c, _, _, fb := newTestClient()
	var gotScope scope.Scope
	var gotRating int
	fb.recordFn = func(_ context.Context, _ string, sc scope.Scope, rating int) error {
		gotScope, gotRating = sc, rating
		return nil
	}

	if err := c.Feedback(context.Background(), "q", "d1", RatingUp); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if gotScope.DocumentID() != "d1" || gotRating != RatingUp {
		t.Errorf("scope/rating = %s/%d", gotScope.String(), gotRating)
	}

	if err := c.Feedback(context.Background(), "q", "", RatingDown); err != nil {
		t.Fatalf("Feedback: %v", err)
	}
	if !gotScope.IsAll() {
		t.Error("empty document id must record corpus-wide feedback")
	}
}

func TestFeedbackList(t *testing.T) {
	c, _, _, fb := newTestClient()
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	fb.listFn = func(_ context.Context, limit int) ([]domfeedback.Record, error) {
		if limit != 10 {
			t.Errorf("limit = %d", limit)
		}
		return []domfeedback.Record{
			domfeedback.Reconstruct("f1", "q", scope.Document("d1"), RatingDown, created),
		}, nil
	}

	records, err := c.FeedbackList(context.Background(), 10)
	if err != nil {
		t.Fatalf("FeedbackList: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	r := records[0]
	if r.ID != "f1" || r.DocumentID != "d1" || r.Rating != RatingDown || !r.CreatedAt.Equal(created) {
		t.Errorf("record = %+v", r)
	}
}

func TestCacheStats(t *testing.T) {
	c, _, _, _ := newTestClient()

	if got := c.CacheStats(); got != (CacheStats{}) {
		t.Errorf("disabled cache stats = %+v", got)
	}

	admin := &mockCacheAdmin{stats: resultcache.Stats{Entries: 2, Hits: 6, Misses: 2}}
	c.cache = admin
	got := c.CacheStats()
	if got.Entries != 2 || got.HitRate != 0.75 {
		t.Errorf("stats = %+v", got)
	}

	c.ClearCache()
	if !admin.invalidated {
		t.Error("ClearCache must invalidate")
	}
}

func TestUsage(t *testing.T) {
	c, _, _, _ := newTestClient()
	start := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	c.usage = &mockUsageUC{reportFn: func(_ context.Context, period domusage.Period) []domusage.Report {
		if period != domusage.PeriodDay {
			t.Errorf("period = %q", period)
		}
		return []domusage.Report{
			domusage.NewReport(domusage.PeriodDay, start.UnixMilli(), end.UnixMilli(),
				domusage.ProviderEmbedding,
				usagemetrics.New(3, 1200, 0),
				usagebudget.New(100000, 98800, false, end.UnixMilli())),
			domusage.NewReport(domusage.PeriodDay, start.UnixMilli(), end.UnixMilli(),
				domusage.ProviderLLM,
				usagemetrics.New(1, 400, 0),
				usagebudget.New(0, 0, false, 0)),
		}
	}}

	reports := c.Usage(context.Background(), PeriodDay)
	if len(reports) != 2 {
		t.Fatalf("reports = %d", len(reports))
	}
	emb := reports[0]
	if emb.Provider != domusage.ProviderEmbedding || emb.Tokens != 1200 {
		t.Errorf("embedding report = %+v", emb)
	}
	if !emb.PeriodStart.Equal(start) || !emb.PeriodEnd.Equal(end) {
		t.Errorf("period = %v..%v", emb.PeriodStart, emb.PeriodEnd)
	}
	if emb.Budget.TokensLimit != 100000 || emb.Budget.TokensRemaining != 98800 {
		t.Errorf("budget = %+v", emb.Budget)
	}
	if reports[1].Provider != domusage.ProviderLLM || reports[1].Budget.TokensLimit != 0 {
		t.Errorf("llm report = %+v", reports[1])
	}
}

func TestHealth(t *testing.T) {
	c, _, _, _ := newTestClient()

	status := c.Health(context.Background())
	if status.Status != string(healthuc.Healthy) {
		t.Errorf("status = %q", status.Status)
	}
	if status.Checks["store"] != string(healthuc.CheckOK) {
		t.Errorf("checks = %v", status.Checks)
	}
}

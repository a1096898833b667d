package askdex

import (
	"context"

	domfeedback "github.com/kailas-cloud/askdex/internal/domain/feedback"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
	"github.com/kailas-cloud/askdex/internal/repository/resultcache"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
)

// --- askUseCase mock ---

type mockAskUC struct {
	askFn   func(ctx context.Context, req request.Request) result.Result
	lastReq request.Request
}

func (m *mockAskUC) Ask(ctx context.Context, req request.Request) result.Result {
	m.lastReq = req
	if m.askFn == nil {
		return result.Empty()
	}
	return m.askFn(ctx, req)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	ingestFn   func(ctx context.Context, documentID string, contents []string) (int, error)
	documentFn func(ctx context.Context, documentID string) ([]passage.Passage, error)
	deleteFn   func(ctx context.Context, documentID string) (int, error)
}

func (m *mockIngestUC) Ingest(ctx context.Context, documentID string, contents []string) (int, error) {
	return m.ingestFn(ctx, documentID, contents)
}

func (m *mockIngestUC) Document(ctx context.Context, documentID string) ([]passage.Passage, error) {
	return m.documentFn(ctx, documentID)
}

func (m *mockIngestUC) Delete(ctx context.Context, documentID string) (int, error) {
	return m.deleteFn(ctx, documentID)
}

// --- feedbackUseCase mock ---

type mockFeedbackUC struct {
	recordFn func(ctx context.Context, query string, sc scope.Scope, rating int) error
	listFn   func(ctx context.Context, limit int) ([]domfeedback.Record, error)
	closed   bool
}

func (m *mockFeedbackUC) Record(ctx context.Context, query string, sc scope.Scope, rating int) error {
	return m.recordFn(ctx, query, sc, rating)
}

func (m *mockFeedbackUC) List(ctx context.Context, limit int) ([]domfeedback.Record, error) {
	return m.listFn(ctx, limit)
}

func (m *mockFeedbackUC) Close() error {
	m.closed = true
	return nil
}

// --- usageUseCase mock ---

type mockUsageUC struct {
	reportFn func(ctx context.Context, period domusage.Period) []domusage.Report
}

func (m *mockUsageUC) GetReport(ctx context.Context, period domusage.Period) []domusage.Report {
	return m.reportFn(ctx, period)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(_ context.Context) healthuc.Report { return m.report }

// --- cacheAdmin mock ---

type mockCacheAdmin struct {
	stats       resultcache.Stats
	invalidated bool
}

func (m *mockCacheAdmin) Stats() resultcache.Stats { return m.stats }
func (m *mockCacheAdmin) InvalidateAll()           { m.invalidated = true }

package chi

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain/feedback"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/request"
	"github.com/kailas-cloud/askdex/internal/domain/search/result"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
	"github.com/kailas-cloud/askdex/internal/repository/resultcache"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
)

// AskService answers questions. It never fails: degradations are
// reported inside the result.
type AskService interface {
	Ask(ctx context.Context, req request.Request) result.Result
}

// IngestService manages the document lifecycle.
type IngestService interface {
	Ingest(ctx context.Context, documentID string, contents []string) (int, error)
	Document(ctx context.Context, documentID string) ([]passage.Passage, error)
	Delete(ctx context.Context, documentID string) (int, error)
}

// FeedbackService records and lists answer ratings.
type FeedbackService interface {
	Record(ctx context.Context, query string, sc scope.Scope, rating int) error
	List(ctx context.Context, limit int) ([]feedback.Record, error)
}

// CacheAdmin exposes the result cache to the admin endpoints.
type CacheAdmin interface {
	Stats() resultcache.Stats
	InvalidateAll()
}

// UsageService builds per-provider usage reports.
type UsageService interface {
	GetReport(ctx context.Context, period domusage.Period) []domusage.Report
}

// HealthService aggregates component health checks.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

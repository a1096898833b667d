// Package usage builds per-provider token usage reports from the live
// budget trackers.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
	"github.com/kailas-cloud/askdex/internal/domain/usage/budget"
	"github.com/kailas-cloud/askdex/internal/domain/usage/metrics"
)

// Service handles usage reporting.
type Service struct {
	embedding BudgetReader
	llm       BudgetReader
}

// New creates a Service. Either reader can be nil (unlimited mode for
// that provider).
func New(embedding, llm BudgetReader) *Service {
	return &Service{embedding: embedding, llm: llm}
}

// GetReport builds usage reports for the given period, one per provider.
func (s *Service) GetReport(_ context.Context, period domusage.Period) []domusage.Report {
	start, end := periodBounds(period, time.Now().UTC())
	return []domusage.Report{
		buildReport(period, start, end, domusage.ProviderEmbedding, s.embedding),
		buildReport(period, start, end, domusage.ProviderLLM, s.llm),
	}
}

// periodBounds returns unix-milli boundaries for the period; total has none.
func periodBounds(period domusage.Period, now time.Time) (start, end int64) {
	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return dayStart.UnixMilli(), dayStart.Add(24 * time.Hour).UnixMilli()
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return monthStart.UnixMilli(), monthStart.AddDate(0, 1, 0).UnixMilli()
	default:
		return 0, 0
	}
}

func buildReport(period domusage.Period, start, end int64, provider string, br BudgetReader) domusage.Report {
	var limit, used, remaining int64
	if br != nil {
		switch period {
		case domusage.PeriodDay:
			limit, used, remaining = br.DailyLimit(), br.DailyUsed(), br.RemainingDaily()
		default:
			limit, used, remaining = br.MonthlyLimit(), br.MonthlyUsed(), br.RemainingMonthly()
		}
	}

	exhausted := limit > 0 && remaining <= 0

	b := budget.New(int(limit), int(remaining), exhausted, end)
	m := metrics.New(0, int(used), 0) // requests and cost not tracked per-period yet

	return domusage.NewReport(period, start, end, provider, m, b)
}

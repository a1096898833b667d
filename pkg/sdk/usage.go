package askdex

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/askdex/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains token usage for one provider over a period.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Provider    string // "embedding" or "llm"
	Tokens      int
	Budget      BudgetStatus
}

// BudgetStatus tracks token quota state. A zero limit means unlimited.
type BudgetStatus struct {
	TokensLimit     int
	TokensRemaining int
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns per-provider token usage for the given period.
// Observer always records success: the underlying use-case is
// in-memory and does not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) []UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	reports := c.usage.GetReport(ctx, domusage.Period(period))
	out := make([]UsageReport, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		b := r.Budget()
		out = append(out, UsageReport{
			Period:      UsagePeriod(r.Period()),
			PeriodStart: time.UnixMilli(r.PeriodStart()).UTC(),
			PeriodEnd:   time.UnixMilli(r.PeriodEnd()).UTC(),
			Provider:    r.Provider(),
			Tokens:      r.Metrics().Tokens(),
			Budget: BudgetStatus{
				TokensLimit:     b.TokensLimit(),
				TokensRemaining: b.TokensRemaining(),
				IsExhausted:     b.IsExhausted(),
				ResetsAt:        time.UnixMilli(b.ResetsAt()).UTC(),
			},
		})
	}
	return out
}

package askdex

import (
	"context"
	"fmt"
	"time"
)

// Ask answers a question over the corpus or a single document. The
// engine degrades rather than fails: provider outages surface as
// results with fewer chunks or no answer, not as errors. Only an
// invalid request returns one.
func (c *Client) Ask(ctx context.Context, req AskRequest) (_ AskResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	r, err := toInternalRequest(req)
	if err != nil {
		return AskResult{}, fmt.Errorf("ask: %w", err)
	}

	return fromInternalResult(c.ask.Ask(ctx, r)), nil
}

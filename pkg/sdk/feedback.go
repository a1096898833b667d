package askdex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// Feedback records an answer rating (RatingUp or RatingDown).
// documentID may be empty for corpus-wide feedback. The write is
// queued; a nil error means accepted.
func (c *Client) Feedback(ctx context.Context, query, documentID string, rating int) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("feedback", start, err) }()

	sc := scope.All()
	if documentID != "" {
		sc = scope.Document(documentID)
	}

	if err = c.feedback.Record(ctx, query, sc, rating); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	return nil
}

// FeedbackList returns stored ratings, newest first, up to limit.
func (c *Client) FeedbackList(ctx context.Context, limit int) (_ []FeedbackRecord, err error) {
	start := time.Now()
	defer func() { c.obs.observe("feedback_list", start, err) }()

	records, err := c.feedback.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}

	out := make([]FeedbackRecord, 0, len(records))
	for i := range records {
		rec := &records[i]
		item := FeedbackRecord{
			ID:        rec.ID(),
			Query:     rec.Query(),
			Rating:    rec.Rating(),
			CreatedAt: rec.CreatedAt(),
		}
		if !rec.Scope().IsAll() {
			item.DocumentID = rec.Scope().DocumentID()
		}
		out = append(out, item)
	}
	return out, nil
}

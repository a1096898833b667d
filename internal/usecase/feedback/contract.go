package feedback

import (
	"context"

	"github.com/kailas-cloud/askdex/internal/domain/feedback"
)

// Recorder persists feedback records.
type Recorder interface {
	Save(ctx context.Context, rec feedback.Record) (feedback.Record, error)
	List(ctx context.Context, limit int) ([]feedback.Record, error)
}

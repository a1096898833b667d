package health

import "context"

// StorePinger checks passage store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// LLMChecker checks answer synthesis provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}

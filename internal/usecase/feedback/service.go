// Package feedback accepts user ratings without ever blocking the ask
// path: writes go through a bounded worker pool and degrade to a
// synchronous write when the pool is saturated.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain/feedback"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// Defaults for the async write pool.
const (
	DefaultWorkers = 4
	// writeTimeout bounds a background write detached from the request context.
	writeTimeout = 5 * time.Second
)

// Service queues feedback writes.
type Service struct {
	repo Recorder
	pool *ants.Pool
	log  *zap.Logger
}

// New creates a feedback service with a nonblocking worker pool.
func New(repo Recorder, workers int, log *zap.Logger) (*Service, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}

	pool, err := ants.NewPool(workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create feedback pool: %w", err)
	}
	return &Service{repo: repo, pool: pool, log: log}, nil
}

// Record validates and persists a rating. The write happens in the
// background; when the pool is saturated it falls back to a synchronous
// write so no rating is ever dropped silently.
func (s *Service) Record(ctx context.Context, query string, sc scope.Scope, rating int) error {
	rec, err := feedback.New(query, sc, rating)
	if err != nil {
		return err
	}

	submitErr := s.pool.Submit(func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if _, err := s.repo.Save(writeCtx, rec); err != nil {
			s.log.Warn("feedback write failed", zap.Error(err))
		}
	})
	if submitErr == nil {
		return nil
	}
	if !errors.Is(submitErr, ants.ErrPoolOverload) {
		return fmt.Errorf("queue feedback: %w", submitErr)
	}

	s.log.Warn("feedback pool saturated, writing synchronously")
	if _, err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// List returns stored records, newest first, up to limit.
func (s *Service) List(ctx context.Context, limit int) ([]feedback.Record, error) {
	return s.repo.List(ctx, limit)
}

// Close drains the worker pool. Pending writes get a grace period.
func (s *Service) Close() error {
	if err := s.pool.ReleaseTimeout(writeTimeout); err != nil {
		return fmt.Errorf("release feedback pool: %w", err)
	}
	return nil
}

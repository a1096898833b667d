package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
	llm       LLMChecker
}

// New creates a Service. embedding and llm can be nil.
func New(store StorePinger, embedding EmbeddingChecker, llm LLMChecker) *Service {
	return &Service{store: store, embedding: embedding, llm: llm}
}

// Check runs health checks against all configured components. The store
// is load-bearing: when it is down the whole service is unhealthy, while
// provider failures only degrade (the engine still answers from text
// search and cached results).
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeDown := false
	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
		storeDown = true
	} else {
		checks["store"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.llm != nil {
		if err := s.llm.HealthCheck(ctx); err != nil {
			checks["llm"] = CheckError
		} else {
			checks["llm"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if storeDown {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

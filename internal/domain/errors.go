package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals a malformed ask request. Rejected at the
	// boundary, no fallback attempted.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoResults signals that every retrieval level came back empty.
	// Terminal but successful: the caller still receives a well-formed result.
	ErrNoResults = errors.New("no results")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrStoreUnavailable signals an unreachable passage store.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrEmbeddingUnavailable signals an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrLLMUnavailable signals an answer synthesis provider failure.
	ErrLLMUnavailable = errors.New("llm provider unavailable")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenQuotaExceeded signals an exhausted token budget.
	ErrTokenQuotaExceeded = errors.New("token quota exceeded")
)

// StoreUnavailableError wraps ErrStoreUnavailable with the failing operation.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStoreUnavailable.Error(), e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return ErrStoreUnavailable }

// NewStoreUnavailable creates a store availability error for the given operation.
func NewStoreUnavailable(op string, err error) error {
	return &StoreUnavailableError{Op: op, Err: err}
}

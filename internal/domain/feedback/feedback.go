package feedback

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

// Rating values.
const (
	RatingDown = -1
	RatingUp   = +1
)

// Record is a user rating of an answer (append-only value object).
type Record struct {
	id        string
	query     string
	recScope  scope.Scope
	rating    int
	createdAt time.Time
}

// New validates and creates a feedback record. The ID is assigned by
// the repository on append.
func New(query string, sc scope.Scope, rating int) (Record, error) {
	if query == "" {
		return Record{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if rating != RatingDown && rating != RatingUp {
		return Record{}, fmt.Errorf("%w: rating must be -1 or +1, got %d", domain.ErrInvalidRequest, rating)
	}
	return Record{query: query, recScope: sc, rating: rating, createdAt: time.Now().UTC()}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(id, query string, sc scope.Scope, rating int, createdAt time.Time) Record {
	return Record{id: id, query: query, recScope: sc, rating: rating, createdAt: createdAt}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Query returns the rated query text.
func (r *Record) Query() string { return r.query }

// Scope returns the scope the query was asked against.
func (r *Record) Scope() scope.Scope { return r.recScope }

// Rating returns -1 or +1.
func (r *Record) Rating() int { return r.rating }

// CreatedAt returns the record creation time.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// WithID returns a copy with the storage-assigned identifier.
func (r Record) WithID(id string) Record {
	r.id = id
	return r
}

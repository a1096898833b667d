// Package scope defines the corpus subset a search is restricted to:
// a single document or the whole corpus.
package scope

// Scope restricts a search to a subset of the corpus.
// The zero value is the all-documents scope.
type Scope struct {
	documentID string
}

// All returns the whole-corpus scope.
func All() Scope { return Scope{} }

// Document returns a single-document scope.
func Document(id string) Scope { return Scope{documentID: id} }

// IsAll reports whether the scope covers the whole corpus.
func (s Scope) IsAll() bool { return s.documentID == "" }

// DocumentID returns the scoped document ID, empty for the all scope.
func (s Scope) DocumentID() string { return s.documentID }

// String returns a stable representation used in cache keys and logs.
func (s Scope) String() string {
	if s.IsAll() {
		return "all"
	}
	return "doc:" + s.documentID
}

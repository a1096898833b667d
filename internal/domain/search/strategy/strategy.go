package strategy

// Strategy is a retrieval strategy picked by the router or a fallback level.
type Strategy string

// Retrieval strategy constants.
const (
	// VectorOnly runs KNN similarity search only.
	VectorOnly Strategy = "vector_only"
	// FtsOnly runs lexical full-text search only. Preferred for terse
	// queries where vector search is unreliable.
	FtsOnly Strategy = "fts_only"
	// Hybrid runs both engines and fuses the result sets.
	Hybrid Strategy = "hybrid"
	// DocumentFull bypasses retrieval and passes the whole document
	// to answer synthesis.
	DocumentFull Strategy = "document_full"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	switch s {
	case VectorOnly, FtsOnly, Hybrid, DocumentFull:
		return true
	}
	return false
}

// UsesVector reports whether the strategy needs a query embedding.
func (s Strategy) UsesVector() bool {
	return s == VectorOnly || s == Hybrid
}

// UsesText reports whether the strategy runs lexical search.
func (s Strategy) UsesText() bool {
	return s == FtsOnly || s == Hybrid
}

package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName     string
	DocumentID    string // restrict hits to one document; empty means the whole corpus
	Vector        []float32
	K             int
	ReturnFields  []string
	IncludeVector bool
}

// TextQuery is the input for BM25 text search.
type TextQuery struct {
	IndexName    string
	Query        string
	DocumentID   string // restrict hits to one document; empty means the whole corpus
	TopK         int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

package domain

// CorpusStats describes the searchable corpus within a scope.
// The router uses it to decide when retrieval can be skipped entirely.
type CorpusStats struct {
	ChunkCount  int
	AvgChunkLen int // characters
}

// EstimatedTokens approximates the token count of the whole scope,
// assuming ~4 characters per token.
func (s CorpusStats) EstimatedTokens() int {
	return s.ChunkCount * s.AvgChunkLen / 4
}

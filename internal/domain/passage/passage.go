package passage

import "fmt"

// MaxContentSize is the maximum passage content size in bytes.
const MaxContentSize = 65536 // 64KB

// Passage is a bounded span of document text (immutable value object).
// Score fields are populated by the retrieval engines: similarity by the
// vector engine, lexical by the full-text engine, fused by the merger.
type Passage struct {
	id         string
	documentID string
	ordinal    int
	content    string
	similarity *float64
	lexical    *float64
	fused      float64
}

// New validates and creates a Passage.
func New(id, documentID string, ordinal int, content string) (Passage, error) {
	if id == "" {
		return Passage{}, fmt.Errorf("passage ID is required")
	}
	if documentID == "" {
		return Passage{}, fmt.Errorf("document ID is required")
	}
	if ordinal < 0 {
		return Passage{}, fmt.Errorf("ordinal must be non-negative, got %d", ordinal)
	}
	if content == "" {
		return Passage{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Passage{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	return Passage{id: id, documentID: documentID, ordinal: ordinal, content: content}, nil
}

// Reconstruct creates a Passage without validation (storage hydration).
func Reconstruct(id, documentID string, ordinal int, content string) Passage {
	return Passage{id: id, documentID: documentID, ordinal: ordinal, content: content}
}

// ID returns the passage identifier.
func (p *Passage) ID() string { return p.id }

// DocumentID returns the owning document identifier.
func (p *Passage) DocumentID() string { return p.documentID }

// Ordinal returns the passage position within its document.
func (p *Passage) Ordinal() int { return p.ordinal }

// Content returns the passage text.
func (p *Passage) Content() string { return p.content }

// Similarity returns the vector similarity score, nil if the passage
// was not produced by vector search.
func (p *Passage) Similarity() *float64 { return p.similarity }

// Lexical returns the full-text relevance score, nil if the passage
// was not produced by lexical search.
func (p *Passage) Lexical() *float64 { return p.lexical }

// Fused returns the combined relevance score in [0,1].
func (p *Passage) Fused() float64 { return p.fused }

// WithSimilarity returns a copy with the vector similarity score set.
func (p Passage) WithSimilarity(s float64) Passage {
	p.similarity = &s
	return p
}

// WithLexical returns a copy with the lexical score set.
func (p Passage) WithLexical(s float64) Passage {
	p.lexical = &s
	return p
}

// WithFused returns a copy with the fused score set.
func (p Passage) WithFused(f float64) Passage {
	p.fused = f
	return p
}

package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/domain/search/scope"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("what is the termination clause?", scope.All(), 0, 0.3, 2, "", true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != DefaultTopK {
		t.Errorf("TopK = %d, want %d", r.TopK(), DefaultTopK)
	}
	if r.Mode() != mode.Auto {
		t.Errorf("Mode = %q, want auto", r.Mode())
	}
}

func TestNew_ClampsTopK(t *testing.T) {
	r, err := New("q", scope.All(), MaxTopK+100, 0.3, 2, mode.Auto, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TopK() != MaxTopK {
		t.Errorf("TopK = %d, want %d", r.TopK(), MaxTopK)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		topK       int
		threshold  float64
		strictness int
		m          mode.Mode
	}{
		{"empty query", "", 5, 0.3, 2, mode.Auto},
		{"query too long", strings.Repeat("q", MaxQueryLength+1), 5, 0.3, 2, mode.Auto},
		{"negative topK", "q", -1, 0.3, 2, mode.Auto},
		{"threshold above 1", "q", 5, 1.5, 2, mode.Auto},
		{"negative threshold", "q", 5, -0.1, 2, mode.Auto},
		{"strictness out of range", "q", 5, 0.3, 4, mode.Auto},
		{"unknown mode", "q", 5, 0.3, 2, "freestyle"},
		{"document_full without document scope", "q", 5, 0.3, 2, mode.DocumentFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.query, scope.All(), tt.topK, tt.threshold, tt.strictness, tt.m, true, true)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("error must wrap ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestNew_FullDocumentNeedsDocumentScope(t *testing.T) {
	_, err := New("full text please", scope.All(), 5, 0.3, 2, mode.DocumentFull, true, true)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("corpus-wide document_full must be rejected, got %v", err)
	}

	r, err := New("full text please", scope.Document("d1"), 5, 0.3, 2, mode.DocumentFull, true, true)
	if err != nil {
		t.Fatalf("scoped document_full must be accepted: %v", err)
	}
	if r.Mode() != mode.DocumentFull {
		t.Errorf("Mode = %q, want document_full", r.Mode())
	}
}

func TestWithQuery(t *testing.T) {
	r, err := New("original", scope.Document("d1"), 5, 0.3, 2, mode.Auto, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rewritten := r.WithQuery("original agreement contract")
	if r.Query() != "original" {
		t.Error("original request mutated")
	}
	if rewritten.Query() != "original agreement contract" {
		t.Errorf("Query = %q", rewritten.Query())
	}
	if rewritten.Scope().DocumentID() != "d1" {
		t.Error("scope must be preserved")
	}
}

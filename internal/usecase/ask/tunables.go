package ask

// Fusion algorithm names accepted by Tunables.Fusion.
const (
	FusionWeighted = "weighted"
	FusionRRF      = "rrf"
)

// Tunables are the engine constants. They are empirically tuned, not
// load-bearing; the config layer exposes every one of them.
type Tunables struct {
	// Alpha and Beta weight the vector and lexical signals in weighted fusion.
	Alpha float64
	Beta  float64
	// Fusion selects the fusion algorithm, weighted or rrf.
	Fusion string
	// SingleSignalPenalty multiplies the score of passages found by only
	// one engine.
	SingleSignalPenalty float64
	// ThresholdStep is subtracted from the threshold per relaxation step.
	ThresholdStep float64
	// StrictnessStep shifts the threshold per strictness point away from
	// the default.
	StrictnessStep float64
	// FullDocumentChunkLimit is the document size under which retrieval
	// is skipped in favor of reading the whole document.
	FullDocumentChunkLimit int
	// ContextBudgetTokens caps the estimated size of a document eligible
	// for the full-document path.
	ContextBudgetTokens int
	// ShortQueryTokens is the significant-token count below which vector
	// search is skipped.
	ShortQueryTokens int
	// SuggestedQuestions is the static fallback list offered when the
	// suggestion provider is absent or failing.
	SuggestedQuestions []string
}

func (t Tunables) normalized() Tunables {
	if t.Alpha == 0 && t.Beta == 0 {
		t.Alpha, t.Beta = 0.7, 0.3
	}
	if t.Fusion == "" {
		t.Fusion = FusionWeighted
	}
	if t.SingleSignalPenalty == 0 {
		t.SingleSignalPenalty = 0.85
	}
	if t.ThresholdStep == 0 {
		t.ThresholdStep = 0.1
	}
	if t.StrictnessStep == 0 {
		t.StrictnessStep = 0.1
	}
	if t.FullDocumentChunkLimit == 0 {
		t.FullDocumentChunkLimit = 12
	}
	if t.ContextBudgetTokens == 0 {
		t.ContextBudgetTokens = 8000
	}
	if t.ShortQueryTokens == 0 {
		t.ShortQueryTokens = 3
	}
	return t
}

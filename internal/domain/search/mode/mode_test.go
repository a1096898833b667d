package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Mode{Auto, Direct, Summary, Quote, List, Table, DocumentFull}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q must be valid", m)
		}
	}

	invalid := []Mode{"", "semantic", "AUTO", "full_document"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q must be invalid", m)
		}
	}
}

func TestWantsFullDocument(t *testing.T) {
	if !DocumentFull.WantsFullDocument() {
		t.Error("document_full must bypass retrieval")
	}
	if Auto.WantsFullDocument() {
		t.Error("auto must not bypass retrieval")
	}
}

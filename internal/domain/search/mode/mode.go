package mode

// Mode is the answer shape requested by the caller.
type Mode string

// Ask mode constants.
const (
	// Auto lets the router pick the retrieval strategy from the query shape.
	Auto    Mode = "auto"
	Direct  Mode = "direct"
	Summary Mode = "summary"
	Quote   Mode = "quote"
	List    Mode = "list"
	Table   Mode = "table"
	// DocumentFull requests synthesis over a whole document rather than
	// retrieved passages.
	DocumentFull Mode = "document_full"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	switch m {
	case Auto, Direct, Summary, Quote, List, Table, DocumentFull:
		return true
	}
	return false
}

// WantsFullDocument reports whether the mode bypasses retrieval and reads a
// document body instead.
func (m Mode) WantsFullDocument() bool {
	return m == DocumentFull
}

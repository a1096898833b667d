package askdex

import (
	"context"
	"fmt"
	"time"
)

// IngestDocument replaces a document's passages with the given
// pre-chunked contents. Returns the stored chunk count.
func (c *Client) IngestDocument(ctx context.Context, documentID string, passages []string) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	stored, err := c.ingest.Ingest(ctx, documentID, passages)
	if err != nil {
		return 0, fmt.Errorf("ingest document: %w", err)
	}
	return stored, nil
}

// Document returns every stored passage of a document in order.
func (c *Client) Document(ctx context.Context, documentID string) (_ []Passage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("get_document", start, err) }()

	internal, err := c.ingest.Document(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	passages := make([]Passage, 0, len(internal))
	for _, p := range internal {
		passages = append(passages, fromInternalPassage(p))
	}
	return passages, nil
}

// DeleteDocument removes a document and returns how many chunks existed.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_document", start, err) }()

	deleted, err := c.ingest.Delete(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete document: %w", err)
	}
	return deleted, nil
}

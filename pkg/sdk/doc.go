// Package askdex provides an embedded Go client for the askdex question
// answering engine. The client wires the retrieval pipeline in-process,
// so no HTTP server is needed: point it at a Redis instance or an
// embedded local store and start asking.
//
//	client, _ := askdex.New(ctx,
//	    askdex.WithLocal(""), // in-memory store
//	    askdex.WithEmbedder(myEmbedder),
//	)
//	defer client.Close()
//
//	_, _ = client.IngestDocument(ctx, "contract-42", chunks)
//	res, _ := client.Ask(ctx, askdex.AskRequest{Query: "termination notice period?"})
//
// Answer synthesis is optional: without a Synthesizer the results carry
// the retrieved chunks only.
package askdex

package memory

import (
	"context"

	"github.com/wallscreet/iso-agent/core"
)

// Embedder converts text to vector embeddings.
// Implementations: mock (testing), onnx (local inference), cached
// (ristretto read-through wrapper around either).
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Index is the semantic memory backend: named collections of embedded
// documents with approximate-nearest-neighbor retrieval.
//
// Collections are created lazily on first use and each is bound to one
// embedding function for its lifetime. Querying a collection that does
// not exist yet is a soft miss: it creates the empty collection and
// returns no results, never an error.
//
// Retrieval order is similarity rank only. No recency ordering and no
// tie-break is guaranteed.
type Index interface {
	// Store upserts one embedded document into a collection.
	Store(ctx context.Context, collection, id, text string, metadata map[string]string) error

	// StoreTurn splits a turn into request and response documents, each
	// embedded and tagged with the turn's metadata. Document ids are the
	// turn id suffixed "_req" and "_res", so re-storing the same turn is
	// idempotent per message.
	StoreTurn(ctx context.Context, collection, conversationID string, turn core.Turn) error

	// Retrieve runs a similarity search and reconstructs each hit into a
	// Message from stored metadata. The reconstruction is lossy: the
	// original embedding and any fields not carried in metadata are gone.
	Retrieve(ctx context.Context, collection, query string, topK int) ([]core.Message, error)

	// RetrieveFacts runs a similarity search and reconstructs hits with
	// metadata type "fact" into Fact triples.
	RetrieveFacts(ctx context.Context, collection, query string, topK int) ([]core.Fact, error)

	// Close releases backend resources.
	Close() error
}

// Package chromem implements memory.Index over chromem-go, a pure Go
// embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/memory"
)

// Store maintains named chromem collections, each bound to the store's
// embedder for its lifetime. Collections are created lazily on first use,
// so querying a collection that was never written to returns an empty
// result set rather than an error.
//
// Concurrency beyond the collection map is delegated to chromem-go.
type Store struct {
	db          *chromem.DB
	embedder    memory.Embedder
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory chromem store using the given embedder.
func New(embedder memory.Embedder) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &Store{
		db:          chromem.NewDB(),
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// NewPersistent creates a chromem store that persists collections under dir.
func NewPersistent(dir string, embedder memory.Embedder) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	return &Store{
		db:          db,
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// getOrCreateCollection returns the named collection, creating it on
// first use bound to the store's embedding function.
func (s *Store) getOrCreateCollection(name string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[name]
	s.mu.RUnlock()

	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if col, exists := s.collections[name]; exists {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection(name, nil, chromem.EmbeddingFunc(s.embedder.Embed))
	if err != nil {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}

	s.collections[name] = col
	return col, nil
}

// Store upserts one embedded document into a collection.
func (s *Store) Store(ctx context.Context, collection, id, text string, metadata map[string]string) error {
	col, err := s.getOrCreateCollection(collection)
	if err != nil {
		return err
	}

	log.Printf("[CHROMEM] Storing document: collection=%s id=%s", collection, id)

	err = col.AddDocument(ctx, chromem.Document{
		ID:       id,
		Content:  text,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("add document %q: %w", id, err)
	}
	return nil
}

// StoreTurn stores a turn as two documents, request and response. Ids are
// the turn id suffixed "_req"/"_res", so re-storing the same turn
// overwrites the same two documents.
func (s *Store) StoreTurn(ctx context.Context, collection, conversationID string, turn core.Turn) error {
	for _, part := range []struct {
		suffix string
		msg    core.Message
	}{
		{"req", turn.Request},
		{"res", turn.Response},
	} {
		id := fmt.Sprintf("%s_%s", turn.ID, part.suffix)
		metadata := map[string]string{
			"conversation_id": conversationID,
			"role":            string(part.msg.Role),
			"speaker":         part.msg.Speaker,
			"timestamp":       part.msg.Timestamp.Format(time.RFC3339),
			"tags":            strings.Join(part.msg.Tags, ","),
		}
		if err := s.Store(ctx, collection, id, part.msg.MemoryString(), metadata); err != nil {
			return fmt.Errorf("store turn %s: %w", turn.ID, err)
		}
	}
	return nil
}

// Retrieve runs a similarity search and rebuilds each hit into a Message
// read-model from its metadata. Order is similarity rank only.
func (s *Store) Retrieve(ctx context.Context, collection, query string, topK int) ([]core.Message, error) {
	results, err := s.query(ctx, collection, query, topK, nil)
	if err != nil {
		return nil, err
	}

	messages := make([]core.Message, 0, len(results))
	for _, result := range results {
		tags := []string(nil)
		if raw := result.Metadata["tags"]; raw != "" {
			tags = strings.Split(raw, ",")
		}
		ts, _ := time.Parse(time.RFC3339, result.Metadata["timestamp"])
		messages = append(messages, core.Message{
			ID:        uuid.New().String(),
			Role:      core.Role(result.Metadata["role"]),
			Speaker:   result.Metadata["speaker"],
			Content:   result.Content,
			Timestamp: ts,
			Tags:      tags,
		})
	}
	return messages, nil
}

// RetrieveFacts runs a similarity search over a fact collection and
// rebuilds hits tagged type "fact" into triples. The embedded text form
// is discarded; only subject/predicate/object metadata survive.
func (s *Store) RetrieveFacts(ctx context.Context, collection, query string, topK int) ([]core.Fact, error) {
	results, err := s.query(ctx, collection, query, topK, map[string]string{"type": "fact"})
	if err != nil {
		return nil, err
	}

	facts := make([]core.Fact, 0, len(results))
	for _, result := range results {
		if result.Metadata["type"] != "fact" {
			continue
		}
		facts = append(facts, core.Fact{
			Subject:   result.Metadata["subject"],
			Predicate: result.Metadata["predicate"],
			Object:    result.Metadata["object"],
		})
	}
	return facts, nil
}

// query embeds the query under the collection's embedding function and
// searches. chromem rejects nResults larger than the collection, so topK
// is clamped to the current document count; an empty collection is a soft
// miss.
func (s *Store) query(ctx context.Context, collection, query string, topK int, where map[string]string) ([]chromem.Result, error) {
	col, err := s.getOrCreateCollection(collection)
	if err != nil {
		return nil, err
	}

	if topK < 1 {
		topK = 1
	}
	if count := col.Count(); count < topK {
		if count == 0 {
			log.Printf("[CHROMEM] Collection %q is empty", collection)
			return nil, nil
		}
		topK = count
	}

	// chromem rejects nResults above the matching document count; a where
	// filter can shrink matches below the clamped topK, so retry downward.
	var results []chromem.Result
	for n := topK; n >= 1; n-- {
		var err error
		results, err = col.Query(ctx, query, n, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query collection %q: %w", collection, err)
	}

	log.Printf("[CHROMEM] Retrieved %d results from %q", len(results), collection)
	return results, nil
}

// Close releases resources. The in-memory backend holds nothing to close.
func (s *Store) Close() error {
	return nil
}

// isInsufficientDocsError checks if an error is chromem's nResults bound.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "nResults must be") ||
		strings.Contains(err.Error(), "number of documents")
}

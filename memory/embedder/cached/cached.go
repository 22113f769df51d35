// Package cached wraps an embedder with a ristretto read-through cache.
//
// Prompt assembly embeds the same query once per context collection
// (memory, knowledge, facts), and replayed conversations re-embed
// identical turn text. Caching by exact text removes those repeated
// model calls.
package cached

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/wallscreet/iso-agent/memory"
)

// Embedder is a read-through cache over another Embedder. Lookups are by
// exact text; costs are vector byte sizes so MaxBytes bounds residency.
type Embedder struct {
	inner memory.Embedder
	cache *ristretto.Cache
}

// Config tunes the cache.
type Config struct {
	// MaxBytes bounds the total cached vector size. Default: 32 MiB.
	MaxBytes int64
}

// New creates a caching embedder around inner.
func New(inner memory.Embedder, cfg Config) (*Embedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner embedder is required")
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: (maxBytes / 1536) * 10, // ~10x expected entries at 384 float32s each
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &Embedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, or embeds and caches it.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.Set(text, vec, int64(len(vec)*4))
	return vec, nil
}

// Dimensions returns the inner embedder's vector size.
func (e *Embedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close releases the cache.
func (e *Embedder) Close() {
	e.cache.Close()
}

// Package memory provides the layered memory surfaces of the agent:
// the bounded short-term turn cache and the interfaces behind semantic
// long-term memory.
//
// Architecture:
//   - TurnCache: fixed-capacity FIFO of recent turns for prompt assembly
//   - Index: named-collection vector storage (chromem-go backend in
//     memory/store/chromem)
//   - Embedder: text-to-vector conversion (mock for testing, ONNX for
//     local inference, ristretto-cached wrapper in memory/embedder/cached)
//
// The cache is a read optimization only. The conversation store owns the
// authoritative record and the cache is rebuilt from it on startup via
// Replay. The vector index stores lossy projections of messages and
// facts; retrieval returns read-model reconstructions, never the original
// entities.
package memory

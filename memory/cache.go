package memory

import (
	"sync"

	"github.com/wallscreet/iso-agent/core"
)

// TurnCache is a fixed-capacity FIFO buffer of recent turns. Eviction is
// strict insertion order, not LRU: when the cache is full, adding a turn
// drops the oldest one.
//
// The cache holds independent copies for fast prompt assembly and is
// never a source of truth. Rebuild it after a restart with Replay using
// the most recent turns loaded from the conversation store.
type TurnCache struct {
	mu       sync.Mutex
	turns    []core.Turn
	capacity int
}

// NewTurnCache creates a cache holding at most capacity turns.
// Capacity values below 1 are treated as 1.
func NewTurnCache(capacity int) *TurnCache {
	if capacity < 1 {
		capacity = 1
	}
	return &TurnCache{capacity: capacity}
}

// AddTurn inserts a turn at the tail, evicting the oldest when full.
func (c *TurnCache) AddTurn(turn core.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, turn)
	if len(c.turns) > c.capacity {
		c.turns = c.turns[len(c.turns)-c.capacity:]
	}
}

// Replay rebuilds the cache from turns in original order. Only the last
// capacity turns are retained. Existing contents are discarded. The new
// contents are swapped in atomically; readers never observe a partial
// replay.
func (c *TurnCache) Replay(turns []core.Turn) {
	if len(turns) > c.capacity {
		turns = turns[len(turns)-c.capacity:]
	}
	fresh := make([]core.Turn, len(turns))
	copy(fresh, turns)

	c.mu.Lock()
	c.turns = fresh
	c.mu.Unlock()
}

// Len returns the number of cached turns.
func (c *TurnCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Capacity returns the maximum number of turns the cache retains.
func (c *TurnCache) Capacity() int {
	return c.capacity
}

// GetNTurns returns the last min(n, Len) turns, oldest first.
func (c *TurnCache) GetNTurns(n int) []core.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || len(c.turns) == 0 {
		return nil
	}
	if n > len(c.turns) {
		n = len(c.turns)
	}
	out := make([]core.Turn, n)
	copy(out, c.turns[len(c.turns)-n:])
	return out
}

// ChatHistory renders all cached turns as prompt strings, request then
// response per turn, oldest first.
func (c *TurnCache) ChatHistory() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := make([]string, 0, len(c.turns)*2)
	for _, t := range c.turns {
		history = append(history, t.Request.PromptString())
		history = append(history, t.Response.PromptString())
	}
	return history
}

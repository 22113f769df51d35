// Package agent wires the memory layers, prompt assembler, and tool
// orchestrator into a conversational agent.
package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/wallscreet/iso-agent/convstore"
	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/engine"
	"github.com/wallscreet/iso-agent/facts"
	"github.com/wallscreet/iso-agent/memory"
	"github.com/wallscreet/iso-agent/prompt"
)

// Collection names for the agent's semantic memory.
const (
	MemoryCollection    = "memory"
	KnowledgeCollection = "knowledge"
)

// Config assembles an Iso from its collaborators.
type Config struct {
	Instructions  prompt.Instructions
	Client        engine.ChatClient
	Registry      *engine.ToolRegistry
	Conversations *convstore.Store
	Facts         *facts.Store
	Index         memory.Index

	// CacheCapacity bounds the short-term turn cache. Default: 20.
	CacheCapacity int

	// TopK is the per-collection retrieval depth. Default: 10.
	TopK int

	// MaxRounds caps tool rounds per response. Zero uses the engine
	// default.
	MaxRounds int
}

// Iso is a conversational agent with layered memory: a short-term turn
// cache, a durable conversation log, semantic memory collections, and a
// structured fact store.
type Iso struct {
	instructions  prompt.Instructions
	assembler     *prompt.Assembler
	orchestrator  *engine.Orchestrator
	conversations *convstore.Store
	facts         *facts.Store
	index         memory.Index
	cache         *memory.TurnCache

	topK      int
	maxRounds int

	conversation *core.Conversation
}

// New creates an agent from config.
func New(cfg Config) (*Iso, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if cfg.Conversations == nil || cfg.Facts == nil || cfg.Index == nil {
		return nil, fmt.Errorf("conversation store, fact store, and index are required")
	}

	capacity := cfg.CacheCapacity
	if capacity == 0 {
		capacity = 20
	}
	topK := cfg.TopK
	if topK == 0 {
		topK = 10
	}

	return &Iso{
		instructions:  cfg.Instructions,
		assembler:     prompt.New(cfg.Instructions),
		orchestrator:  engine.NewOrchestrator(cfg.Client, cfg.Registry),
		conversations: cfg.Conversations,
		facts:         cfg.Facts,
		index:         cfg.Index,
		cache:         memory.NewTurnCache(capacity),
		topK:          topK,
		maxRounds:     cfg.MaxRounds,
	}, nil
}

// Cache exposes the short-term turn cache.
func (a *Iso) Cache() *memory.TurnCache {
	return a.cache
}

// LoadConversation gets or creates the conversation and rehydrates the
// short-term cache by replaying its most recent turns, so prompt quality
// is unaffected by restarts.
func (a *Iso) LoadConversation(ctx context.Context, id string, guest core.Identity) (core.Conversation, error) {
	host := core.Identity{Name: a.instructions.Name, IsBot: true}
	convo, err := a.conversations.GetOrCreate(ctx, id, host, guest)
	if err != nil {
		return core.Conversation{}, err
	}

	a.cache.Replay(convo.RecentTurns(a.cache.Capacity()))
	a.conversation = &convo

	log.Printf("[AGENT] Loaded conversation %s (%d turns, %d cached)",
		convo.ID, len(convo.Turns), a.cache.Len())
	return convo, nil
}

// Response is the outcome of one agent turn.
type Response struct {
	// Content is the assistant's final answer.
	Content string

	// Turn is the committed request/response pair.
	Turn core.Turn

	// Messages is the full running message sequence, for auditing.
	Messages []engine.ChatMessage

	// Usage is cumulative model token usage for the turn.
	Usage engine.Usage
}

// Respond runs one full turn: retrieve context, assemble the prompt, run
// the tool loop, then commit the exchange to the durable log, the cache,
// and the semantic memory collection.
//
// Nothing durable is written until the loop produces a final answer, so
// cancellation mid-loop leaves the stores untouched. Tool handlers that
// already ran may have had external side effects of their own.
func (a *Iso) Respond(ctx context.Context, model, userInput string) (*Response, error) {
	if a.conversation == nil {
		return nil, fmt.Errorf("no conversation loaded")
	}
	if model == "" {
		model = a.instructions.Model
	}

	messages := a.assembler.Build(
		a.retrieveFacts(ctx, userInput),
		a.retrieveContext(ctx, MemoryCollection, userInput),
		a.retrieveContext(ctx, KnowledgeCollection, userInput),
		a.cache.ChatHistory(),
		userInput,
	)

	out, err := a.orchestrator.Run(ctx, engine.Input{
		Model:     model,
		Messages:  messages,
		MaxRounds: a.maxRounds,
	})
	if err != nil {
		return nil, err
	}

	request := core.NewMessage(core.RoleUser, a.conversation.Guest.Name, userInput)
	response := core.NewMessage(core.RoleAssistant, a.conversation.Host.Name, out.Content)

	turn, err := a.conversations.AppendTurn(ctx, a.conversation, request, response)
	if err != nil {
		return nil, fmt.Errorf("commit turn: %w", err)
	}
	a.cache.AddTurn(turn)

	if err := a.index.StoreTurn(ctx, MemoryCollection, a.conversation.ID, turn); err != nil {
		// The durable log is already committed; semantic indexing is a
		// derived projection and its failure does not void the turn.
		log.Printf("[AGENT] Failed to index turn %s: %v", turn.ID, err)
	}

	return &Response{
		Content:  out.Content,
		Turn:     turn,
		Messages: out.Messages,
		Usage:    out.Usage,
	}, nil
}

// retrieveFacts renders semantically relevant facts for the prompt.
func (a *Iso) retrieveFacts(ctx context.Context, query string) []string {
	results, err := a.facts.Retrieve(ctx, query, a.topK)
	if err != nil {
		log.Printf("[AGENT] Fact retrieval failed: %v", err)
		return nil
	}
	lines := make([]string, 0, len(results))
	for _, f := range results {
		lines = append(lines, f.MemoryString())
	}
	return lines
}

// retrieveContext renders semantically relevant messages from a memory
// collection for the prompt.
func (a *Iso) retrieveContext(ctx context.Context, collection, query string) []string {
	results, err := a.index.Retrieve(ctx, collection, query, a.topK)
	if err != nil {
		log.Printf("[AGENT] %s retrieval failed: %v", collection, err)
		return nil
	}
	lines := make([]string, 0, len(results))
	for _, m := range results {
		lines = append(lines, m.Content)
	}
	return lines
}

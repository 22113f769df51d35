package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// ToolDefinition describes a tool to the model: a name, a human-readable
// description, and a JSON-schema for its arguments.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Handler executes a tool call with parsed arguments and returns a
// status object to serialize back to the model.
type Handler func(ctx context.Context, args json.RawMessage) (interface{}, error)

// ToolRegistry maps tool names to handlers. Registration rejects
// duplicate and empty names; dispatch of an unknown name is the
// orchestrator's soft-error path, not the registry's concern.
type ToolRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	defs     []ToolDefinition
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{handlers: make(map[string]Handler)}
}

// Register adds a tool. It fails on an empty name, a nil handler, or a
// name that is already registered.
func (r *ToolRegistry) Register(def ToolDefinition, handler Handler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("tool %q: handler is required", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[def.Name]; exists {
		return fmt.Errorf("tool %q already registered", def.Name)
	}
	r.handlers[def.Name] = handler
	r.defs = append(r.defs, def)
	return nil
}

// Get returns the handler for a tool name.
func (r *ToolRegistry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Definitions returns all tool definitions in registration order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, len(r.defs))
	copy(defs, r.defs)
	return defs
}

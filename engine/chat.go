package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wallscreet/iso-agent/core"
)

// ChatMessage is one entry in the orchestrator's running message
// sequence: a role-tagged prompt segment, an assistant reply (possibly
// carrying tool-call requests), or a tool result.
type ChatMessage struct {
	Role    core.Role `json:"role"`
	Content string    `json:"content"`

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool-role result message to the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued request to invoke a named tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Usage tracks model token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage record.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// ChatResult is one model response: either final content with no tool
// calls, or a set of tool-call requests (possibly with interim text).
type ChatResult struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// ChatClient is the external model capability. Implementations must
// return a *ModelCallError on provider failure rather than an empty
// result, so callers can decide retry versus abort.
type ChatClient interface {
	GetResponse(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (*ChatResult, error)
}

// ModelCallError reports a failed model capability call.
type ModelCallError struct {
	Model string
	Err   error
}

func (e *ModelCallError) Error() string {
	return fmt.Sprintf("model call failed (%s): %v", e.Model, e.Err)
}

func (e *ModelCallError) Unwrap() error {
	return e.Err
}

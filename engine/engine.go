// Package engine runs the multi-round tool-dispatch loop between a
// prompt, a model capability, and a registry of tool handlers.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/wallscreet/iso-agent/core"
)

// ErrRoundLimit is returned when the model keeps requesting tools past
// the configured round cap.
var ErrRoundLimit = errors.New("exceeded maximum tool rounds")

// DefaultMaxRounds caps the tool loop when Input.MaxRounds is zero.
const DefaultMaxRounds = 8

// Orchestrator drives the loop: call the model with the running message
// sequence, dispatch any requested tool calls, feed results back, and
// repeat until the model answers with plain content.
//
// The orchestrator is synchronous and performs no durable writes of its
// own; tool handlers carry their own side effects and are not rolled
// back on later cancellation.
type Orchestrator struct {
	client   ChatClient
	registry *ToolRegistry
}

// NewOrchestrator creates an orchestrator over a model capability and a
// tool registry.
func NewOrchestrator(client ChatClient, registry *ToolRegistry) *Orchestrator {
	if registry == nil {
		registry = NewToolRegistry()
	}
	return &Orchestrator{client: client, registry: registry}
}

// Registry returns the orchestrator's tool registry.
func (o *Orchestrator) Registry() *ToolRegistry {
	return o.registry
}

// Input configures one orchestrator run.
type Input struct {
	// Model is the model id passed to the capability.
	Model string

	// Messages is the assembled prompt: the initial running sequence.
	Messages []ChatMessage

	// MaxRounds caps model calls per run. Zero means DefaultMaxRounds.
	MaxRounds int
}

// Output is the result of a completed run.
type Output struct {
	// Content is the model's final plain answer.
	Content string

	// Messages is the full running sequence after the loop, for
	// auditing and persistence. On ErrRoundLimit it holds everything
	// accumulated so far.
	Messages []ChatMessage

	// Usage is cumulative token usage across all rounds.
	Usage Usage

	// Rounds is the number of model calls made.
	Rounds int
}

// Run executes the loop until the model stops requesting tools, the
// round cap is hit, or the context is canceled. On ErrRoundLimit the
// returned Output still carries the running sequence and usage.
func (o *Orchestrator) Run(ctx context.Context, input Input) (*Output, error) {
	maxRounds := input.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	messages := make([]ChatMessage, len(input.Messages))
	copy(messages, input.Messages)

	var total Usage

	for round := 1; ; round++ {
		if err := ctx.Err(); err != nil {
			return &Output{Messages: messages, Usage: total, Rounds: round - 1}, err
		}
		if round > maxRounds {
			return &Output{Messages: messages, Usage: total, Rounds: round - 1},
				fmt.Errorf("%w (%d)", ErrRoundLimit, maxRounds)
		}

		resp, err := o.client.GetResponse(ctx, input.Model, messages, o.registry.Definitions())
		if err != nil {
			return &Output{Messages: messages, Usage: total, Rounds: round - 1}, err
		}
		total.Add(resp.Usage)

		// Plain answer: done. The final content is returned alongside
		// the sequence rather than appended to it; the caller decides
		// how to commit the turn.
		if len(resp.ToolCalls) == 0 {
			return &Output{
				Content:  resp.Content,
				Messages: messages,
				Usage:    total,
				Rounds:   round,
			}, nil
		}

		// Append the model's own tool-call message, then one tool
		// result per call, and go around again.
		messages = append(messages, ChatMessage{
			Role:      core.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			result := o.dispatch(ctx, call)
			messages = append(messages, ChatMessage{
				Role:       core.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
}

// dispatch executes one tool call and serializes its status object.
// Unknown tools and handler failures are soft errors returned to the
// model as data so it can self-correct in the next round.
func (o *Orchestrator) dispatch(ctx context.Context, call ToolCall) string {
	handler, ok := o.registry.Get(call.Name)
	if !ok {
		log.Printf("[ENGINE] Unknown tool requested: %s", call.Name)
		return marshalStatus(map[string]interface{}{
			"status": "unknown_tool",
			"tool":   call.Name,
		})
	}

	result, err := handler(ctx, call.Arguments)
	if err != nil {
		log.Printf("[ENGINE] Tool %s failed: %v", call.Name, err)
		return marshalStatus(map[string]interface{}{
			"status": "error",
			"tool":   call.Name,
			"error":  err.Error(),
		})
	}
	if result == nil {
		result = map[string]interface{}{"status": "ok"}
	}
	return marshalStatus(result)
}

func marshalStatus(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","error":%q}`, err.Error())
	}
	return string(data)
}

package engine

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/wallscreet/iso-agent/core"
)

// AnthropicClient implements ChatClient over the Anthropic Messages API.
//
// The API constrains the message list: system content travels in a
// separate system prompt, the first list entry must be user-role, and
// empty assistant blocks are rejected. The adapter coalesces system-role
// messages (and any assistant text preceding the first user message) into
// the system prompt, in order, and drops trailing empty assistant
// placeholders.
type AnthropicClient struct {
	client      anthropic.Client
	maxTokens   int64
	temperature float64
	topP        float64
	topK        int64
}

// AnthropicConfig configures the adapter.
type AnthropicConfig struct {
	// APIKey authenticates against the API. Empty falls back to the
	// SDK's environment lookup.
	APIKey string

	// MaxTokens caps response tokens per call. Default: 4096.
	MaxTokens int64

	// Sampling controls, passed through per call. Zero values leave the
	// provider defaults.
	Temperature float64
	TopP        float64
	TopK        int64
}

// NewAnthropicClient creates an Anthropic-backed chat capability.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		topK:        cfg.TopK,
	}
}

// buildParams maps the running sequence and tool definitions onto the
// Messages API request shape.
func (c *AnthropicClient) buildParams(model string, messages []ChatMessage, tools []ToolDefinition) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}
	if c.topP > 0 {
		params.TopP = anthropic.Float(c.topP)
	}
	if c.topK > 0 {
		params.TopK = anthropic.Int(c.topK)
	}

	var systemParts []string
	for _, msg := range messages {
		switch msg.Role {
		case core.RoleSystem:
			systemParts = append(systemParts, msg.Content)

		case core.RoleUser:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case core.RoleAssistant:
			if len(msg.ToolCalls) == 0 && msg.Content == "" {
				// Empty assistant placeholder from the prompt script.
				continue
			}
			if len(params.Messages) == 0 && len(msg.ToolCalls) == 0 {
				// The first API message must be user-role; assistant text
				// before any user message joins the system prompt.
				systemParts = append(systemParts, msg.Content)
				continue
			}
			blocks := make([]anthropic.ContentBlockParamUnion, 0, 1+len(msg.ToolCalls))
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    call.ID,
						Name:  call.Name,
						Input: call.Arguments,
					},
				})
			}
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))

		case core.RoleTool:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false)))
		}
	}

	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemParts, "\n\n")},
		}
	}
	if len(tools) > 0 {
		params.Tools = toAPITools(tools)
	}
	return params
}

// GetResponse sends the running sequence and tool definitions to the
// model and normalizes the reply into a ChatResult. Provider failures
// come back as *ModelCallError.
func (c *AnthropicClient) GetResponse(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (*ChatResult, error) {
	params := c.buildParams(model, messages, tools)

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &ModelCallError{Model: model, Err: err}
	}

	result := &ChatResult{
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Content += block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	return result, nil
}

// toAPITools converts registry definitions to API tool params.
func toAPITools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, def := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := def.InputSchema["properties"]; ok {
			schema.Properties = props
		}
		if req, ok := def.InputSchema["required"].([]string); ok {
			schema.Required = req
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}

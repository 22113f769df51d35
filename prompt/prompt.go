// Package prompt assembles the layered context sources into the ordered,
// role-tagged message sequence sent to the model.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/engine"
)

// Instructions holds the assistant's identity and standing directives.
type Instructions struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	Model          string `yaml:"llm_model"`
	SystemMessage  string `yaml:"system_message"`
	AssistantIntro string `yaml:"assistant_intro"`
	AssistantFocus string `yaml:"assistant_focus"`
}

// LoadInstructions reads instructions from a YAML file.
func LoadInstructions(path string) (Instructions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Instructions{}, fmt.Errorf("read instructions: %w", err)
	}
	var ins Instructions
	if err := yaml.Unmarshal(data, &ins); err != nil {
		return Instructions{}, fmt.Errorf("parse instructions %s: %w", path, err)
	}
	return ins, nil
}

// Placeholders are substituted verbatim for empty context categories.
type Placeholders struct {
	Facts     string
	Memories  string
	Knowledge string
	History   string
}

// DefaultPlaceholders match the stock instruction set.
var DefaultPlaceholders = Placeholders{
	Facts:     "No related Facts found",
	Memories:  "No related memories",
	Knowledge: "No related knowledge",
	History:   "No chat history",
}

// Assembler builds prompts from instructions and context blocks. Build is
// a pure function: no I/O, no hidden state, and identical inputs always
// produce byte-identical output.
type Assembler struct {
	Instructions Instructions
	Placeholders Placeholders
}

// New creates an assembler with default placeholders.
func New(instructions Instructions) *Assembler {
	return &Assembler{
		Instructions: instructions,
		Placeholders: DefaultPlaceholders,
	}
}

// Build composes the fixed prompt script: system message, assistant
// intro, focus directive, then facts, memory, knowledge and chat-history
// blocks, the user request, and an empty assistant placeholder for the
// model to fill.
func (a *Assembler) Build(facts, memories, knowledge, history []string, userRequest string) []engine.ChatMessage {
	return []engine.ChatMessage{
		{Role: core.RoleSystem, Content: a.Instructions.SystemMessage},
		{Role: core.RoleAssistant, Content: a.Instructions.AssistantIntro},
		{Role: core.RoleUser, Content: fmt.Sprintf("Your current focus should be: %s", a.Instructions.AssistantFocus)},
		{Role: core.RoleSystem, Content: fmt.Sprintf("Facts from your Facts Table:\n%s", joinOr(facts, a.Placeholders.Facts))},
		{Role: core.RoleSystem, Content: fmt.Sprintf("Request context from your memory:\n%s", joinOr(memories, a.Placeholders.Memories))},
		{Role: core.RoleSystem, Content: fmt.Sprintf("Request context from your knowledge base:\n%s", joinOr(knowledge, a.Placeholders.Knowledge))},
		{Role: core.RoleSystem, Content: fmt.Sprintf("Conversation chat history:\n%s", joinOr(history, a.Placeholders.History))},
		{Role: core.RoleUser, Content: fmt.Sprintf("User Request: %s", userRequest)},
		{Role: core.RoleAssistant, Content: ""},
	}
}

// joinOr joins a context block or substitutes its placeholder when empty.
func joinOr(lines []string, placeholder string) string {
	if len(lines) == 0 {
		return placeholder
	}
	return strings.Join(lines, "\n")
}

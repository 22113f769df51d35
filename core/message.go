package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies who a message is attributed to in a prompt sequence.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single utterance within a conversation.
// Messages are immutable once created; construct them with NewMessage.
type Message struct {
	ID        string    `yaml:"id" json:"id"`
	Role      Role      `yaml:"role" json:"role"`
	Speaker   string    `yaml:"speaker" json:"speaker"`
	Content   string    `yaml:"content" json:"content"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Tags      []string  `yaml:"tags,omitempty" json:"tags,omitempty"`

	// Embedding is set transiently when a message is about to be indexed.
	// It is never persisted and never survives a retrieval round trip.
	Embedding []float32 `yaml:"-" json:"-"`
}

// NewMessage creates a message with a fresh ID and the current time.
func NewMessage(role Role, speaker, content string, tags ...string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Speaker:   speaker,
		Content:   content,
		Timestamp: time.Now(),
		Tags:      tags,
	}
}

// MemoryString renders the message in the form used for embedding and
// vector storage.
func (m Message) MemoryString() string {
	return fmt.Sprintf("%s @ %s: %s", m.Speaker, m.Timestamp.Format(time.RFC3339), m.Content)
}

// PromptString renders the message in the form used for chat-history
// blocks in assembled prompts.
func (m Message) PromptString() string {
	return fmt.Sprintf("%s (%s):\n%s", m.Speaker, m.Timestamp.Format(time.RFC3339), m.Content)
}

package core

import (
	"fmt"
	"time"
)

// Identity names one party of a conversation.
type Identity struct {
	Name  string `yaml:"name" json:"name"`
	IsBot bool   `yaml:"is_bot" json:"is_bot"`
}

// Turn is one request/response pair within a conversation.
// Turn numbers start at 1 and are strictly increasing, gapless.
type Turn struct {
	ID             string  `yaml:"id" json:"id"`
	ConversationID string  `yaml:"conversation_id" json:"conversation_id"`
	TurnNumber     int     `yaml:"turn_number" json:"turn_number"`
	Request        Message `yaml:"request" json:"request"`
	Response       Message `yaml:"response" json:"response"`
}

// Conversation is the durable record of an exchange between a host agent
// and a guest. The ConversationStore owns the authoritative copy.
type Conversation struct {
	ID          string    `yaml:"id" json:"id"`
	Description string    `yaml:"description" json:"description"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	LastActive  time.Time `yaml:"last_active" json:"last_active"`
	Host        Identity  `yaml:"host" json:"host"`
	Guest       Identity  `yaml:"guest" json:"guest"`
	Turns       []Turn    `yaml:"turns" json:"turns"`
}

// NewConversation creates an empty conversation between host and guest.
func NewConversation(id string, host, guest Identity) Conversation {
	now := time.Now()
	return Conversation{
		ID:          id,
		Description: fmt.Sprintf("%s-%s", host.Name, guest.Name),
		CreatedAt:   now,
		LastActive:  now,
		Host:        host,
		Guest:       guest,
	}
}

// NextTurnNumber returns the turn number the next appended turn must carry:
// one past the current maximum, or 1 for an empty conversation.
func (c Conversation) NextTurnNumber() int {
	max := 0
	for _, t := range c.Turns {
		if t.TurnNumber > max {
			max = t.TurnNumber
		}
	}
	return max + 1
}

// RecentTurns returns the last n turns in original order. It returns all
// turns when n exceeds the turn count.
func (c Conversation) RecentTurns(n int) []Turn {
	if n <= 0 || len(c.Turns) == 0 {
		return nil
	}
	if n > len(c.Turns) {
		n = len(c.Turns)
	}
	out := make([]Turn, n)
	copy(out, c.Turns[len(c.Turns)-n:])
	return out
}

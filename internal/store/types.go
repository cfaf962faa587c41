package store

import (
	"context"
	"errors"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Producer values describe which strategy assembled an assistant message.
// The rendering surface uses them to show offline/fallback indicators.
const (
	ProducedBackend         = "backend"
	ProducedBackendGrounded = "backend_grounded"
	ProducedCalculator      = "calculator"
	ProducedTemplate        = "template"
	ProducedError           = "error"
)

var ErrNotFound = errors.New("conversation not found")

// Conversation is an append-only message log with a mutable title.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Citation points at a (document, page) pair that was present in the
// retrieved-chunk set used to build the message it is attached to.
type Citation struct {
	Document string `json:"document"`
	Page     int    `json:"page"`
	Quote    string `json:"quote,omitempty"`
}

// Message is one conversational turn. Immutable once stored.
type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Role           string     `json:"role"`
	Text           string     `json:"text"`
	Citations      []Citation `json:"citations,omitempty"`
	Produced       string     `json:"produced,omitempty"`
	FallbackRate   bool       `json:"fallback_rate,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Store persists conversations and their ordered message logs.
// AppendMessage must be atomic per conversation: two concurrent appends to the
// same conversation never interleave out of order.
type Store interface {
	CreateConversation(ctx context.Context, title string) (Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
	RenameConversation(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg Message) (Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	Close() error
}

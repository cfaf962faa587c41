package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process store for local/dev use.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]Message
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]Message),
	}
}

func (s *InMemoryStore) CreateConversation(_ context.Context, title string) (Conversation, error) {
	c := Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = &c
	return c, nil
}

func (s *InMemoryStore) ListConversations(_ context.Context) ([]Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, *c)
	}
	return out, nil
}

func (s *InMemoryStore) RenameConversation(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	c.Title = title
	return nil
}

func (s *InMemoryStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

func (s *InMemoryStore) AppendMessage(_ context.Context, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	// Copy citations so callers can't mutate a stored message afterwards.
	msg.Citations = append([]Citation(nil), msg.Citations...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[msg.ConversationID]; !ok {
		return Message{}, ErrNotFound
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	return msg, nil
}

func (s *InMemoryStore) ListMessages(_ context.Context, conversationID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, ErrNotFound
	}
	arr := s.messages[conversationID]
	out := make([]Message, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

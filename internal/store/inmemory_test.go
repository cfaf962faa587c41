package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryAppendAndList(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	conv, err := s.CreateConversation(ctx, "budget questions")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	_, err = s.AppendMessage(ctx, Message{
		ConversationID: conv.ID,
		Role:           RoleUser,
		Text:           "what is my savings rate",
	})
	if err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	_, err = s.AppendMessage(ctx, Message{
		ConversationID: conv.ID,
		Role:           RoleAssistant,
		Text:           "about 12%",
		Produced:       ProducedCalculator,
	})
	if err != nil {
		t.Fatalf("AppendMessage() assistant error = %v", err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[1].Role != RoleAssistant {
		t.Fatalf("roles = %q,%q, want user,assistant", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Produced != ProducedCalculator {
		t.Fatalf("Produced = %q, want %q", msgs[1].Produced, ProducedCalculator)
	}
}

func TestInMemoryUnknownConversation(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if _, err := s.AppendMessage(ctx, Message{ConversationID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AppendMessage() error = %v, want ErrNotFound", err)
	}
	if _, err := s.ListMessages(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ListMessages() error = %v, want ErrNotFound", err)
	}
	if err := s.RenameConversation(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RenameConversation() error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteConversation(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteConversation() error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryDeleteIsHard(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	conv, _ := s.CreateConversation(ctx, "temp")
	if _, err := s.AppendMessage(ctx, Message{ConversationID: conv.ID, Role: RoleUser, Text: "hi"}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := s.DeleteConversation(ctx, conv.ID); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if _, err := s.ListMessages(ctx, conv.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ListMessages() after delete error = %v, want ErrNotFound", err)
	}
}

func TestInMemoryStoredCitationsAreIsolated(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	conv, _ := s.CreateConversation(ctx, "cited")
	cits := []Citation{{Document: "FinanceBook.pdf", Page: 42}}
	if _, err := s.AppendMessage(ctx, Message{
		ConversationID: conv.ID,
		Role:           RoleAssistant,
		Text:           "see the book",
		Citations:      cits,
	}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	cits[0].Document = "Mutated.pdf"

	msgs, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if msgs[0].Citations[0].Document != "FinanceBook.pdf" {
		t.Fatalf("stored citation document = %q, want FinanceBook.pdf", msgs[0].Citations[0].Document)
	}
}

func TestConcurrentConversationsDoNotInterleave(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	convA, _ := s.CreateConversation(ctx, "a")
	convB, _ := s.CreateConversation(ctx, "b")

	const turns = 50
	var wg sync.WaitGroup
	for _, conv := range []Conversation{convA, convB} {
		wg.Add(1)
		go func(convID string) {
			defer wg.Done()
			for i := 0; i < turns; i++ {
				_, _ = s.AppendMessage(ctx, Message{
					ConversationID: convID,
					Role:           RoleUser,
					Text:           fmt.Sprintf("turn %d", i),
				})
			}
		}(conv.ID)
	}
	wg.Wait()

	for _, conv := range []Conversation{convA, convB} {
		msgs, err := s.ListMessages(ctx, conv.ID)
		if err != nil {
			t.Fatalf("ListMessages(%s) error = %v", conv.ID, err)
		}
		if len(msgs) != turns {
			t.Fatalf("len(msgs) = %d, want %d", len(msgs), turns)
		}
		for i, m := range msgs {
			if m.Text != fmt.Sprintf("turn %d", i) {
				t.Fatalf("msg[%d] = %q, want turn %d", i, m.Text, i)
			}
		}
	}
}

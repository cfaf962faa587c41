package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversations in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			seq BIGSERIAL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			citations JSONB NOT NULL DEFAULT '[]',
			produced TEXT NOT NULL DEFAULT '',
			fallback_rate BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages (conversation_id, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateConversation(ctx context.Context, title string) (Conversation, error) {
	c := Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, title, created_at) VALUES ($1, $2, $3)`,
		c.ID, c.Title, c.CreatedAt,
	)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, created_at, expires_at FROM conversations ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RenameConversation(ctx context.Context, id, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE conversations SET title=$2 WHERE id=$1`, id, title)
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteConversation(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	citations := msg.Citations
	if citations == nil {
		citations = []Citation{}
	}
	payload, err := json.Marshal(citations)
	if err != nil {
		return Message{}, fmt.Errorf("marshal citations: %w", err)
	}

	// A single INSERT with a serial seq keeps appends atomic per conversation.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, citations, produced, fallback_rate, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8
		 WHERE EXISTS (SELECT 1 FROM conversations WHERE id = $2)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Text, payload, msg.Produced, msg.FallbackRate, msg.CreatedAt,
	)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Message{}, ErrNotFound
	}
	return msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM conversations WHERE id=$1)`, conversationID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check conversation: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, citations, produced, fallback_rate, created_at
		 FROM messages WHERE conversation_id=$1 ORDER BY seq`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			payload []byte
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Text, &payload, &m.Produced, &m.FallbackRate, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &m.Citations); err != nil {
				return nil, fmt.Errorf("decode citations: %w", err)
			}
		}
		if len(m.Citations) == 0 {
			m.Citations = nil
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

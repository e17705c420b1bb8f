package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is a single conversation turn with its token estimate
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Body           string `json:"body"`
	TokenEst       int    `json:"token_est"`
	CreatedAt      int64  `json:"created_at"`
}

// InsertMessage appends a message row
func (s *Store) InsertMessage(ctx context.Context, conversationID, role, body string, tokenEst int) (*Message, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, role, body, token_est, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		id, conversationID, role, body, tokenEst, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return &Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Body:           body,
		TokenEst:       tokenEst,
		CreatedAt:      now,
	}, nil
}

// ListMessages returns messages in chronological order. With a limit it
// returns the most recent N, still oldest-first. Ties on created_at keep
// insertion order via rowid.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]*Message, error) {
	query := `SELECT id, conversation_id, role, body, token_est, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at, rowid`
	args := []any{conversationID}
	if limit > 0 {
		query = `SELECT id, conversation_id, role, body, token_est, created_at FROM (
			SELECT id, conversation_id, role, body, token_est, created_at, rowid AS rid
			FROM messages WHERE conversation_id = ?
			ORDER BY created_at DESC, rid DESC LIMIT ?
		) ORDER BY created_at, rid`
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Body, &m.TokenEst, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// SumMessageTokens returns the conversation's running token estimate
func (s *Store) SumMessageTokens(ctx context.Context, conversationID string) (int, error) {
	var total int
	err := s.q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(token_est), 0) FROM messages WHERE conversation_id = ?", conversationID,
	).Scan(&total)
	return total, err
}

// CountMessages returns the number of messages in a conversation
func (s *Store) CountMessages(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE conversation_id = ?", conversationID,
	).Scan(&n)
	return n, err
}

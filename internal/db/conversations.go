package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation is a chat thread bound to a provider/model pair. A closed
// conversation (ClosedAt set, CtxForce true) rejects further appends.
type Conversation struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id"`
	CtxWarn    bool   `json:"ctx_warn"`
	CtxForce   bool   `json:"ctx_force"`
	ParentID   string `json:"parent_id,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
	ClosedAt   *int64 `json:"closed_at,omitempty"`
}

const conversationCols = "id, title, provider_id, model_id, ctx_warn, ctx_force, parent_id, created_at, updated_at, closed_at"

func scanConversation(row interface{ Scan(...any) error }) (*Conversation, error) {
	var c Conversation
	var parent sql.NullString
	var closed sql.NullInt64
	err := row.Scan(&c.ID, &c.Title, &c.ProviderID, &c.ModelID, &c.CtxWarn, &c.CtxForce, &parent, &c.CreatedAt, &c.UpdatedAt, &closed)
	if err != nil {
		return nil, err
	}
	c.ParentID = parent.String
	if closed.Valid {
		c.ClosedAt = &closed.Int64
	}
	return &c, nil
}

// CreateConversation inserts a new open conversation
func (s *Store) CreateConversation(ctx context.Context, title, providerID, modelID, parentID string) (*Conversation, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	var parent any
	if parentID != "" {
		parent = parentID
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO conversations (id, title, provider_id, model_id, parent_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, title, providerID, modelID, parent, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &Conversation{
		ID:         id,
		Title:      title,
		ProviderID: providerID,
		ModelID:    modelID,
		ParentID:   parentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// GetConversation returns a conversation by id, or sql.ErrNoRows
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+conversationCols+" FROM conversations WHERE id = ?", id)
	return scanConversation(row)
}

// ListConversations returns conversations newest-first
func (s *Store) ListConversations(ctx context.Context, limit int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.QueryContext(ctx, "SELECT "+conversationCols+" FROM conversations ORDER BY updated_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConversationModel pins a conversation to a provider/model pair
func (s *Store) UpdateConversationModel(ctx context.Context, id, providerID, modelID string) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE conversations SET provider_id = ?, model_id = ?, updated_at = ? WHERE id = ?",
		providerID, modelID, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation model: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchConversation bumps updated_at
func (s *Store) TouchConversation(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, "UPDATE conversations SET updated_at = ? WHERE id = ?", time.Now().Unix(), id)
	return err
}

// MarkCtxWarn flips the soft-threshold flag (one-way)
func (s *Store) MarkCtxWarn(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, "UPDATE conversations SET ctx_warn = 1, updated_at = ? WHERE id = ?", time.Now().Unix(), id)
	return err
}

// CloseConversation marks a conversation force-closed
func (s *Store) CloseConversation(ctx context.Context, id string) error {
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		"UPDATE conversations SET ctx_warn = 1, ctx_force = 1, closed_at = ?, updated_at = ? WHERE id = ?",
		now, now, id,
	)
	return err
}

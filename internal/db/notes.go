package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Note is a free-form workspace note; notes feed the daily digest and can be
// summarization targets.
type Note struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// CreateNote inserts a note
func (s *Store) CreateNote(ctx context.Context, title, body string) (*Note, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO notes (id, title, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, title, body, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return &Note{ID: id, Title: title, Body: body, CreatedAt: now, UpdatedAt: now}, nil
}

// GetNote returns a note by id, or sql.ErrNoRows
func (s *Store) GetNote(ctx context.Context, id string) (*Note, error) {
	var n Note
	err := s.q.QueryRowContext(ctx,
		"SELECT id, title, body, created_at, updated_at FROM notes WHERE id = ?", id,
	).Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes returns notes newest-first
func (s *Store) ListNotes(ctx context.Context, limit int) ([]*Note, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, title, body, created_at, updated_at FROM notes ORDER BY updated_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// ListNotesBetween returns notes created in [from, to) oldest-first
func (s *Store) ListNotesBetween(ctx context.Context, from, to int64) ([]*Note, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, title, body, created_at, updated_at FROM notes WHERE created_at >= ? AND created_at < ? ORDER BY created_at",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

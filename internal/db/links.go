package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Link relations written during rollover
const (
	RelSummarisedAs = "summarised_as" // conversation -> summary
	RelRolloverTo   = "rollover_to"   // summary -> successor conversation
)

// Link is a typed edge between two records
type Link struct {
	ID        string `json:"id"`
	SrcType   string `json:"src_type"`
	SrcID     string `json:"src_id"`
	DstType   string `json:"dst_type"`
	DstID     string `json:"dst_id"`
	Rel       string `json:"rel"`
	CreatedAt int64  `json:"created_at"`
}

// CreateLink inserts an edge
func (s *Store) CreateLink(ctx context.Context, srcType, srcID, dstType, dstID, rel string) (*Link, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO links (id, src_type, src_id, dst_type, dst_id, rel, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, srcType, srcID, dstType, dstID, rel, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	return &Link{ID: id, SrcType: srcType, SrcID: srcID, DstType: dstType, DstID: dstID, Rel: rel, CreatedAt: now}, nil
}

// ListLinksFrom returns edges leaving a record
func (s *Store) ListLinksFrom(ctx context.Context, srcType, srcID string) ([]*Link, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, src_type, src_id, dst_type, dst_id, rel, created_at FROM links WHERE src_type = ? AND src_id = ? ORDER BY created_at",
		srcType, srcID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.SrcType, &l.SrcID, &l.DstType, &l.DstID, &l.Rel, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

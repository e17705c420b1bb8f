package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Summary is one version of a condensed rendering of a target record.
// Versions per (target_type, target_id) are monotonic and never overwritten.
type Summary struct {
	ID         string `json:"id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Version    int    `json:"version"`
	Body       string `json:"body"`
	TokenEst   int    `json:"token_est"`
	SourceHash string `json:"source_hash"`
	ModelID    string `json:"model_id,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

const summaryCols = "id, target_type, target_id, version, body, token_est, source_hash, model_id, created_at"

func scanSummary(row interface{ Scan(...any) error }) (*Summary, error) {
	var s Summary
	var model sql.NullString
	err := row.Scan(&s.ID, &s.TargetType, &s.TargetID, &s.Version, &s.Body, &s.TokenEst, &s.SourceHash, &model, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.ModelID = model.String
	return &s, nil
}

// InsertSummary stores the next version for the target. The version is
// computed in the same statement; callers serialise per-target writes.
func (s *Store) InsertSummary(ctx context.Context, targetType, targetID, body, sourceHash, modelID string, tokenEst int) (*Summary, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	var model any
	if modelID != "" {
		model = modelID
	}
	row := s.q.QueryRowContext(ctx,
		`INSERT INTO summaries (id, target_type, target_id, version, body, token_est, source_hash, model_id, created_at)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(version), 0) + 1 FROM summaries WHERE target_type = ? AND target_id = ?), ?, ?, ?, ?, ?)
		 RETURNING version`,
		id, targetType, targetID, targetType, targetID, body, tokenEst, sourceHash, model, now,
	)
	var version int
	if err := row.Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to insert summary: %w", err)
	}
	return &Summary{
		ID:         id,
		TargetType: targetType,
		TargetID:   targetID,
		Version:    version,
		Body:       body,
		TokenEst:   tokenEst,
		SourceHash: sourceHash,
		ModelID:    modelID,
		CreatedAt:  now,
	}, nil
}

// GetSummary returns a summary by id
func (s *Store) GetSummary(ctx context.Context, id string) (*Summary, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+summaryCols+" FROM summaries WHERE id = ?", id)
	return scanSummary(row)
}

// GetSummaryVersion returns one specific version for a target, or sql.ErrNoRows
func (s *Store) GetSummaryVersion(ctx context.Context, targetType, targetID string, version int) (*Summary, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+summaryCols+" FROM summaries WHERE target_type = ? AND target_id = ? AND version = ?",
		targetType, targetID, version,
	)
	return scanSummary(row)
}

// LatestSummary returns the highest version for a target, or sql.ErrNoRows
func (s *Store) LatestSummary(ctx context.Context, targetType, targetID string) (*Summary, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+summaryCols+" FROM summaries WHERE target_type = ? AND target_id = ? ORDER BY version DESC LIMIT 1",
		targetType, targetID,
	)
	return scanSummary(row)
}

// FindSummaryByHash returns the newest summary for a target matching the
// given source hash, or sql.ErrNoRows
func (s *Store) FindSummaryByHash(ctx context.Context, targetType, targetID, sourceHash string) (*Summary, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+summaryCols+" FROM summaries WHERE target_type = ? AND target_id = ? AND source_hash = ? ORDER BY version DESC LIMIT 1",
		targetType, targetID, sourceHash,
	)
	return scanSummary(row)
}

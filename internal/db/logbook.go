package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LogbookEntry is the per-day digest record, one row per date
type LogbookEntry struct {
	ID        string `json:"id"`
	EntryDate string `json:"entry_date"` // YYYY-MM-DD
	Summary   string `json:"summary"`
	CreatedAt int64  `json:"created_at"`
}

// TimelineEvent is a derived point on a day's timeline
type TimelineEvent struct {
	ID        string `json:"id"`
	EntryDate string `json:"entry_date"`
	TS        int64  `json:"ts"`
	Kind      string `json:"kind"`
	RefType   string `json:"ref_type,omitempty"`
	RefID     string `json:"ref_id,omitempty"`
	Label     string `json:"label"`
}

// UpsertLogbookEntry writes or replaces the digest for a date
func (s *Store) UpsertLogbookEntry(ctx context.Context, entryDate, summary string) (*LogbookEntry, error) {
	id := uuid.New().String()
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO logbook_entries (id, entry_date, summary, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(entry_date) DO UPDATE SET summary = excluded.summary`,
		id, entryDate, summary, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert logbook entry: %w", err)
	}
	var e LogbookEntry
	err = s.q.QueryRowContext(ctx,
		"SELECT id, entry_date, summary, created_at FROM logbook_entries WHERE entry_date = ?", entryDate,
	).Scan(&e.ID, &e.EntryDate, &e.Summary, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetLogbookEntry returns the entry for a date, or sql.ErrNoRows
func (s *Store) GetLogbookEntry(ctx context.Context, entryDate string) (*LogbookEntry, error) {
	var e LogbookEntry
	err := s.q.QueryRowContext(ctx,
		"SELECT id, entry_date, summary, created_at FROM logbook_entries WHERE entry_date = ?", entryDate,
	).Scan(&e.ID, &e.EntryDate, &e.Summary, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListLogbookEntries returns entries newest date first
func (s *Store) ListLogbookEntries(ctx context.Context, limit int) ([]*LogbookEntry, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, entry_date, summary, created_at FROM logbook_entries ORDER BY entry_date DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*LogbookEntry
	for rows.Next() {
		var e LogbookEntry
		if err := rows.Scan(&e.ID, &e.EntryDate, &e.Summary, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ReplaceTimeline rebuilds a date's timeline atomically
func (s *Store) ReplaceTimeline(ctx context.Context, entryDate string, events []*TimelineEvent) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, "DELETE FROM timeline_events WHERE entry_date = ?", entryDate); err != nil {
			return err
		}
		for _, e := range events {
			if e.ID == "" {
				e.ID = uuid.New().String()
			}
			var refType, refID any
			if e.RefType != "" {
				refType = e.RefType
			}
			if e.RefID != "" {
				refID = e.RefID
			}
			_, err := tx.q.ExecContext(ctx,
				"INSERT INTO timeline_events (id, entry_date, ts, kind, ref_type, ref_id, label) VALUES (?, ?, ?, ?, ?, ?, ?)",
				e.ID, entryDate, e.TS, e.Kind, refType, refID, e.Label,
			)
			if err != nil {
				return fmt.Errorf("failed to insert timeline event: %w", err)
			}
		}
		return nil
	})
}

// ListTimeline returns a date's events in time order
func (s *Store) ListTimeline(ctx context.Context, entryDate string) ([]*TimelineEvent, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, entry_date, ts, kind, ref_type, ref_id, label FROM timeline_events WHERE entry_date = ? ORDER BY ts", entryDate,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*TimelineEvent
	for rows.Next() {
		var e TimelineEvent
		var refType, refID sql.NullString
		if err := rows.Scan(&e.ID, &e.EntryDate, &e.TS, &e.Kind, &refType, &refID, &e.Label); err != nil {
			return nil, err
		}
		e.RefType = refType.String
		e.RefID = refID.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

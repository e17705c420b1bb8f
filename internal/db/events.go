package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is one persisted runtime event. Code is a stable machine-readable
// identifier (AI-CTX-WARN, AI-0201, ...); Data holds structured JSON context.
type Event struct {
	ID      string `json:"id"`
	TS      int64  `json:"ts"`
	Level   string `json:"level"`
	Code    string `json:"code,omitempty"`
	Module  string `json:"module"`
	Message string `json:"message"`
	Explain string `json:"explain,omitempty"`
	Data    string `json:"data,omitempty"`
}

// InsertEvent appends an event row
func (s *Store) InsertEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.TS == 0 {
		e.TS = time.Now().Unix()
	}
	var code, explain, data any
	if e.Code != "" {
		code = e.Code
	}
	if e.Explain != "" {
		explain = e.Explain
	}
	if e.Data != "" {
		data = e.Data
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO event_log (id, ts, level, code, module, message, explain, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.TS, e.Level, code, e.Module, e.Message, explain, data,
	)
	return err
}

// ListEvents returns events newest-first, optionally filtered by module
func (s *Store) ListEvents(ctx context.Context, module string, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := "SELECT id, ts, level, code, module, message, explain, data FROM event_log"
	args := []any{}
	if module != "" {
		query += " WHERE module = ?"
		args = append(args, module)
	}
	query += " ORDER BY ts DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		var code, explain, data sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Level, &code, &e.Module, &e.Message, &explain, &data); err != nil {
			return nil, err
		}
		e.Code = code.String
		e.Explain = explain.String
		e.Data = data.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

// ListEventsBetween returns a module's events in [from, to) oldest-first
func (s *Store) ListEventsBetween(ctx context.Context, module string, from, to int64) ([]*Event, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT id, ts, level, code, module, message, explain, data FROM event_log WHERE module = ? AND ts >= ? AND ts < ? ORDER BY ts, rowid",
		module, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		var code, explain, data sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Level, &code, &e.Module, &e.Message, &explain, &data); err != nil {
			return nil, err
		}
		e.Code = code.String
		e.Explain = explain.String
		e.Data = data.String
		out = append(out, &e)
	}
	return out, rows.Err()
}

// CountEventsSince counts events for a module in [from, to), optionally only
// matching one code.
func (s *Store) CountEventsSince(ctx context.Context, module, code string, from, to int64) (int, error) {
	query := "SELECT COUNT(*) FROM event_log WHERE module = ? AND ts >= ? AND ts < ?"
	args := []any{module, from, to}
	if code != "" {
		query += " AND code = ?"
		args = append(args, code)
	}
	var n int
	err := s.q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

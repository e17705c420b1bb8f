package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job states. Transitions are queued -> running -> done | error; RecoverOrphans
// additionally moves running -> queued once at startup.
const (
	JobQueued  = "queued"
	JobRunning = "running"
	JobDone    = "done"
	JobError   = "error"
)

// Job is one unit of deferred work
type Job struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	State     string          `json:"state"`
	Payload   json.RawMessage `json:"payload"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	RunAt     *int64          `json:"run_at,omitempty"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

const jobCols = "id, kind, state, payload, result, error, run_at, created_at, updated_at"

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	var j Job
	var payload string
	var result, errMsg sql.NullString
	var runAt sql.NullInt64
	err := row.Scan(&j.ID, &j.Kind, &j.State, &payload, &result, &errMsg, &runAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Payload = json.RawMessage(payload)
	if result.Valid {
		j.Result = json.RawMessage(result.String)
	}
	j.Error = errMsg.String
	if runAt.Valid {
		j.RunAt = &runAt.Int64
	}
	return &j, nil
}

// EnqueueJob inserts a queued job. runAt nil means runnable immediately.
func (s *Store) EnqueueJob(ctx context.Context, kind string, payload json.RawMessage, runAt *time.Time) (*Job, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	id := uuid.New().String()
	now := time.Now().Unix()
	var run any
	var runUnix *int64
	if runAt != nil {
		u := runAt.Unix()
		run = u
		runUnix = &u
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO jobs (id, kind, state, payload, run_at, created_at, updated_at) VALUES (?, ?, 'queued', ?, ?, ?, ?)",
		id, kind, string(payload), run, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return &Job{ID: id, Kind: kind, State: JobQueued, Payload: payload, RunAt: runUnix, CreatedAt: now, UpdatedAt: now}, nil
}

// ClaimNextJob atomically flips the oldest runnable queued job to running and
// returns it. Returns nil when nothing is runnable. The single UPDATE keeps
// the claim exclusive across workers.
func (s *Store) ClaimNextJob(ctx context.Context, kinds []string) (*Job, error) {
	now := time.Now().Unix()
	query := `UPDATE jobs SET state = 'running', updated_at = ?
		WHERE id = (
			SELECT id FROM jobs
			WHERE state = 'queued' AND (run_at IS NULL OR run_at <= ?)`
	args := []any{now, now}
	if len(kinds) > 0 {
		query += " AND kind IN (?" + strings.Repeat(",?", len(kinds)-1) + ")"
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query += `
			ORDER BY COALESCE(run_at, created_at), created_at LIMIT 1
		)
		RETURNING ` + jobCols

	row := s.q.QueryRowContext(ctx, query, args...)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// ClaimJob claims one specific queued job (run_now path)
func (s *Store) ClaimJob(ctx context.Context, id string) (*Job, error) {
	row := s.q.QueryRowContext(ctx,
		"UPDATE jobs SET state = 'running', updated_at = ? WHERE id = ? AND state = 'queued' RETURNING "+jobCols,
		time.Now().Unix(), id,
	)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return j, err
}

// CompleteJob marks a running job done with its result
func (s *Store) CompleteJob(ctx context.Context, id string, result json.RawMessage) error {
	var res any
	if len(result) > 0 {
		res = string(result)
	}
	_, err := s.q.ExecContext(ctx,
		"UPDATE jobs SET state = 'done', result = ?, updated_at = ? WHERE id = ? AND state = 'running'",
		res, time.Now().Unix(), id,
	)
	return err
}

// FailJob marks a running job errored with the failure message
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE jobs SET state = 'error', error = ?, updated_at = ? WHERE id = ? AND state = 'running'",
		message, time.Now().Unix(), id,
	)
	return err
}

// RecoverOrphanJobs re-queues jobs left running by a previous process.
// Called once at startup before any worker starts.
func (s *Store) RecoverOrphanJobs(ctx context.Context) (int, error) {
	res, err := s.q.ExecContext(ctx,
		"UPDATE jobs SET state = 'queued', updated_at = ? WHERE state = 'running'",
		time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to recover orphan jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetJob returns a job by id
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+jobCols+" FROM jobs WHERE id = ?", id)
	return scanJob(row)
}

// CountJobsSince counts jobs touched in [from, to)
func (s *Store) CountJobsSince(ctx context.Context, from, to int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM jobs WHERE updated_at >= ? AND updated_at < ?", from, to,
	).Scan(&n)
	return n, err
}

package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestJobLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.EnqueueJob(ctx, "summary.generate", json.RawMessage(`{"target_id":"n1"}`), nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if job.State != JobQueued {
		t.Errorf("new job state = %s, want %s", job.State, JobQueued)
	}

	claimed, err := store.ClaimNextJob(ctx, []string{"summary.generate"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.ID != job.ID || claimed.State != JobRunning {
		t.Errorf("claimed %s in state %s", claimed.ID, claimed.State)
	}

	// claim is exclusive: nothing else is runnable
	if j, err := store.ClaimNextJob(ctx, []string{"summary.generate"}); err != nil || j != nil {
		t.Errorf("second claim should find nothing, got %v, %v", j, err)
	}

	if err := store.CompleteJob(ctx, job.ID, json.RawMessage(`{"ok":true}`)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	done, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if done.State != JobDone {
		t.Errorf("state = %s, want %s", done.State, JobDone)
	}
	if string(done.Result) != `{"ok":true}` {
		t.Errorf("result = %s", done.Result)
	}
}

func TestJobFailureKeepsError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.EnqueueJob(ctx, "workspace.daily_digest", nil, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := store.ClaimJob(ctx, job.ID); err != nil {
		t.Fatalf("claim by id: %v", err)
	}
	if err := store.FailJob(ctx, job.ID, "no such day"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	failed, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if failed.State != JobError || failed.Error != "no such day" {
		t.Errorf("state=%s error=%q", failed.State, failed.Error)
	}

	// terminal states are final: completing a failed job is a no-op
	if err := store.CompleteJob(ctx, job.ID, nil); err != nil {
		t.Fatalf("complete after fail: %v", err)
	}
	again, _ := store.GetJob(ctx, job.ID)
	if again.State != JobError {
		t.Errorf("terminal state mutated to %s", again.State)
	}
}

func TestClaimRespectsRunAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	if _, err := store.EnqueueJob(ctx, "summary.generate", nil, &future); err != nil {
		t.Fatalf("enqueue deferred: %v", err)
	}
	if j, err := store.ClaimNextJob(ctx, []string{"summary.generate"}); err != nil || j != nil {
		t.Errorf("deferred job claimed early: %v, %v", j, err)
	}

	past := time.Now().Add(-time.Minute)
	due, err := store.EnqueueJob(ctx, "summary.generate", nil, &past)
	if err != nil {
		t.Fatalf("enqueue due: %v", err)
	}
	claimed, err := store.ClaimNextJob(ctx, []string{"summary.generate"})
	if err != nil {
		t.Fatalf("claim due: %v", err)
	}
	if claimed.ID != due.ID {
		t.Errorf("claimed %s, want %s", claimed.ID, due.ID)
	}
}

func TestClaimFiltersKinds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.EnqueueJob(ctx, "other.kind", nil, nil); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if j, err := store.ClaimNextJob(ctx, []string{"summary.generate", "workspace.daily_digest"}); err != nil || j != nil {
		t.Errorf("claimed a kind outside the filter: %v, %v", j, err)
	}
}

func TestRecoverOrphanJobs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job, err := store.EnqueueJob(ctx, "summary.generate", nil, nil)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := store.ClaimJob(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// simulates a restart with the job still marked running
	n, err := store.RecoverOrphanJobs(ctx)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if n != 1 {
		t.Errorf("recovered %d jobs, want 1", n)
	}

	requeued, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if requeued.State != JobQueued {
		t.Errorf("state = %s, want %s", requeued.State, JobQueued)
	}
}

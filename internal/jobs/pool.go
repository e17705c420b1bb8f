// Package jobs runs deferred work off a durable queue: jobs survive restarts
// in the jobs table, workers claim them atomically, and a cron schedule feeds
// in the nightly digest.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/logging"
)

// ErrUnknownKind rejects jobs no handler is registered for
var ErrUnknownKind = errors.New("unknown job kind")

// HandlerFunc executes one job payload and returns its result
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

const pollInterval = 2 * time.Second

// Pool is a fixed set of workers polling the queue. Enqueues wake the pool so
// immediate jobs don't wait out the poll interval.
type Pool struct {
	store   *db.Store
	events  *eventlog.Logger
	workers int

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a Pool with the given worker count
func NewPool(store *db.Store, events *eventlog.Logger, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		store:    store,
		events:   events,
		workers:  workers,
		handlers: make(map[string]HandlerFunc),
		wake:     make(chan struct{}, 1),
	}
}

// Register binds a handler to a job kind. Must happen before Start.
func (p *Pool) Register(kind string, h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[kind] = h
}

func (p *Pool) handler(kind string) (HandlerFunc, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[kind]
	return h, ok
}

func (p *Pool) kinds() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.handlers))
	for k := range p.handlers {
		out = append(out, k)
	}
	return out
}

// Enqueue persists a job and wakes the workers. The kind must be registered.
func (p *Pool) Enqueue(ctx context.Context, kind string, payload json.RawMessage, runAt *time.Time) (*db.Job, error) {
	if _, ok := p.handler(kind); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	job, err := p.store.EnqueueJob(ctx, kind, payload, runAt)
	if err != nil {
		return nil, err
	}
	p.Wake()
	return job, nil
}

// RunNow persists a job, claims it immediately and executes it on the calling
// goroutine, returning the finished record.
func (p *Pool) RunNow(ctx context.Context, kind string, payload json.RawMessage) (*db.Job, error) {
	if _, ok := p.handler(kind); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	job, err := p.store.EnqueueJob(ctx, kind, payload, nil)
	if err != nil {
		return nil, err
	}
	claimed, err := p.store.ClaimJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		// a polling worker got there first; report the stored state
		return p.store.GetJob(ctx, job.ID)
	}
	p.execute(ctx, claimed)
	return p.store.GetJob(ctx, job.ID)
}

// Wake nudges the workers without blocking
func (p *Pool) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Start launches the workers
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	logging.Infof("job pool started with %d workers", p.workers)
}

// Stop cancels the workers and waits for in-flight jobs
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		job, err := p.store.ClaimNextJob(ctx, p.kinds())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Errorf("job claim failed: %v", err)
		}
		if job != nil {
			p.execute(ctx, job)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-p.wake:
		case <-time.After(pollInterval):
		}
	}
}

func (p *Pool) execute(ctx context.Context, job *db.Job) {
	h, ok := p.handler(job.Kind)
	if !ok {
		_ = p.store.FailJob(ctx, job.ID, "no handler for kind "+job.Kind)
		return
	}

	result, err := h(ctx, job.Payload)
	if err != nil {
		logging.Errorf("job %s (%s) failed: %v", job.ID, job.Kind, err)
		if ferr := p.store.FailJob(ctx, job.ID, err.Error()); ferr != nil {
			logging.Errorf("failed to record job failure: %v", ferr)
		}
		p.events.Error(ctx, eventlog.CodeJobFail, eventlog.ModuleJobs,
			fmt.Sprintf("job %s failed", job.Kind), err.Error(),
			map[string]any{"job_id": job.ID, "kind": job.Kind})
		return
	}

	if cerr := p.store.CompleteJob(ctx, job.ID, result); cerr != nil {
		logging.Errorf("failed to record job completion: %v", cerr)
		return
	}
	p.events.Info(ctx, eventlog.CodeJobDone, eventlog.ModuleJobs,
		fmt.Sprintf("job %s done", job.Kind), "",
		map[string]any{"job_id": job.ID, "kind": job.Kind})
}

package eventlog

import (
	"context"
	"encoding/json"

	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/logging"
)

// Modules
const (
	ModuleAIRuntime = "ai.runtime"
	ModuleAIChat    = "ai.chat"
	ModuleJobs      = "jobs"
	ModuleWorkspace = "workspace"
)

// Stable event codes. Consumers match on these, never on message text.
const (
	CodeInvokeOK      = "AI-0200"
	CodeInvokeFail    = "AI-0201"
	CodeCtxWarn       = "AI-CTX-WARN"
	CodeCtxRollover   = "AI-CTX-ROLLOVER"
	CodeSetModel      = "AI-SET-MODEL"
	CodeSummary       = "AI-SUMMARY"
	CodeSummaryErr    = "AI-SUMMARY-ERR"
	CodeSettings      = "AI-0001"
	CodeDigestDone    = "SYS-LOG-100"
	CodeJobDone       = "JOB-200"
	CodeJobFail       = "JOB-500"
	CodeDigestNoFacts = "AI-DIGEST-001"
)

// Logger persists structured runtime events. A failed write never fails the
// operation that produced the event.
type Logger struct {
	store *db.Store
}

// New creates an event logger over the store
func New(store *db.Store) *Logger {
	return &Logger{store: store}
}

// Log writes one event. data is marshalled to JSON when non-nil.
func (l *Logger) Log(ctx context.Context, level, code, module, message, explain string, data map[string]any) {
	e := &db.Event{
		Level:   level,
		Code:    code,
		Module:  module,
		Message: message,
		Explain: explain,
	}
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			e.Data = string(b)
		}
	}
	if err := l.store.InsertEvent(ctx, e); err != nil {
		logging.Warnf("event log write failed (%s %s): %v", code, module, err)
	}
}

// Info logs an info-level event
func (l *Logger) Info(ctx context.Context, code, module, message, explain string, data map[string]any) {
	l.Log(ctx, "info", code, module, message, explain, data)
}

// Warn logs a warn-level event
func (l *Logger) Warn(ctx context.Context, code, module, message, explain string, data map[string]any) {
	l.Log(ctx, "warn", code, module, message, explain, data)
}

// Error logs an error-level event
func (l *Logger) Error(ctx context.Context, code, module, message, explain string, data map[string]any) {
	l.Log(ctx, "error", code, module, message, explain, data)
}

// List returns persisted events newest-first
func (l *Logger) List(ctx context.Context, module string, limit int) ([]*db.Event, error) {
	return l.store.ListEvents(ctx, module, limit)
}

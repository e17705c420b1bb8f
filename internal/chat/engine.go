// Package chat owns the conversation lifecycle: append, token accounting,
// the soft warn threshold and the forced rollover into a successor
// conversation.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/provider"
	"github.com/inkos/inkd/internal/summary"
)

// Sentinel errors mapped to HTTP statuses by the handlers
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationClosed   = errors.New("conversation is closed")
	ErrMessageTooLarge      = errors.New("message alone exceeds the context budget")
	ErrInvalidRole          = errors.New("role must be system, user or assistant")
	ErrEmptyBody            = errors.New("message body is empty")
)

// AppendResult reports what an append did. When Rolled is set, Conversation
// is the successor and Message is the replayed triggering message; the
// predecessor is closed.
type AppendResult struct {
	Conversation  *db.Conversation `json:"conversation"`
	Message       *db.Message      `json:"message,omitempty"`
	TotalTokens   int              `json:"total_tokens"`
	Warned        bool             `json:"warned"`
	Rolled        bool             `json:"rolled"`
	Summary       *db.Summary      `json:"summary,omitempty"`
	SummaryReused bool             `json:"summary_reused,omitempty"`
}

// Engine serialises all mutations of one conversation behind a keyed mutex;
// the summarization call happens outside any DB transaction, so a crash
// between summary and close leaves only a reusable cache entry behind.
type Engine struct {
	store      *db.Store
	registry   *provider.Registry
	summarizer *summary.Summarizer
	events     *eventlog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates an Engine
func NewEngine(store *db.Store, registry *provider.Registry, summarizer *summary.Summarizer, events *eventlog.Logger) *Engine {
	return &Engine{
		store:      store,
		registry:   registry,
		summarizer: summarizer,
		events:     events,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lock(conversationID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.locks[conversationID]; ok {
		return l
	}
	l := &sync.Mutex{}
	e.locks[conversationID] = l
	return l
}

// Create starts a conversation pinned to a provider/model pair. Empty
// provider falls back to the active runtime setting; the model is clamped to
// the provider's known list. No credential check here.
func (e *Engine) Create(ctx context.Context, title, providerID, modelID string) (*db.Conversation, error) {
	pid, model, err := e.registry.Pin(ctx, providerID, modelID)
	if err != nil {
		return nil, err
	}
	return e.store.CreateConversation(ctx, title, pid, model, "")
}

// Get returns a conversation
func (e *Engine) Get(ctx context.Context, id string) (*db.Conversation, error) {
	conv, err := e.store.GetConversation(ctx, id)
	if err == sql.ErrNoRows {
		return nil, ErrConversationNotFound
	}
	return conv, err
}

// List returns conversations newest-first
func (e *Engine) List(ctx context.Context, limit int) ([]*db.Conversation, error) {
	return e.store.ListConversations(ctx, limit)
}

// Messages returns a conversation's messages oldest-first
func (e *Engine) Messages(ctx context.Context, id string, limit int) ([]*db.Message, error) {
	if _, err := e.Get(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListMessages(ctx, id, limit)
}

// SetModel re-pins a conversation. Works on closed conversations too; the
// pin only matters if the thread is still appendable, but settings changes
// should never be rejected for history.
func (e *Engine) SetModel(ctx context.Context, id, providerID, modelID string) (*db.Conversation, error) {
	lock := e.lock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pid, model, err := e.registry.Pin(ctx, providerID, modelID)
	if err != nil {
		return nil, err
	}
	if err := e.store.UpdateConversationModel(ctx, id, pid, model); err != nil {
		return nil, err
	}
	e.events.Info(ctx, eventlog.CodeSetModel, eventlog.ModuleAIChat,
		fmt.Sprintf("conversation %s pinned to %s/%s", id, pid, model), "",
		map[string]any{"conversation_id": id, "provider": pid, "model": model,
			"previous_provider": conv.ProviderID, "previous_model": conv.ModelID})
	conv.ProviderID = pid
	conv.ModelID = model
	return conv, nil
}

// Append adds a message, updating token accounting and triggering the
// warn/rollover lifecycle. When the running total would cross the force
// threshold, the conversation is closed and the triggering message lands in
// the successor instead, so it is persisted exactly once either way.
func (e *Engine) Append(ctx context.Context, conversationID, role, body string) (*AppendResult, error) {
	switch role {
	case "system", "user", "assistant":
	default:
		return nil, ErrInvalidRole
	}
	if body == "" {
		return nil, ErrEmptyBody
	}

	lock := e.lock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := e.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.CtxForce || conv.ClosedAt != nil {
		return nil, ErrConversationClosed
	}

	cfg, err := LoadConfig(ctx, e.store)
	if err != nil {
		return nil, err
	}
	window := e.registry.ContextWindowFor(ctx, conv.ProviderID, conv.ModelID)
	warnAt := int(cfg.WarnRatio * float64(window))
	forceAt := int(cfg.ForceRatio * float64(window))

	tokens := summary.ApproxTokens(body)
	if tokens >= forceAt {
		// would immediately force the successor over its own threshold;
		// rollover is capped at a single hop
		return nil, fmt.Errorf("%w: %d tokens against a budget of %d", ErrMessageTooLarge, tokens, forceAt)
	}

	existing, err := e.store.SumMessageTokens(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	total := existing + tokens

	if total >= forceAt {
		return e.rollover(ctx, conv, role, body, tokens)
	}

	var msg *db.Message
	warned := false
	err = e.store.WithTx(ctx, func(tx *db.Store) error {
		var err error
		msg, err = tx.InsertMessage(ctx, conversationID, role, body, tokens)
		if err != nil {
			return err
		}
		if total >= warnAt && !conv.CtxWarn {
			warned = true
			if err := tx.MarkCtxWarn(ctx, conversationID); err != nil {
				return err
			}
		}
		return tx.TouchConversation(ctx, conversationID)
	})
	if err != nil {
		return nil, err
	}

	if warned {
		conv.CtxWarn = true
		e.events.Warn(ctx, eventlog.CodeCtxWarn, eventlog.ModuleAIChat,
			fmt.Sprintf("conversation %s at %d of %d tokens", conversationID, total, window), "",
			map[string]any{"conversation_id": conversationID, "total_tokens": total,
				"window": window, "warn_at": warnAt, "force_at": forceAt})
	}

	return &AppendResult{
		Conversation: conv,
		Message:      msg,
		TotalTokens:  total,
		Warned:       conv.CtxWarn,
	}, nil
}

// ForceRollover closes the conversation into a successor regardless of
// thresholds. An empty or already-closed conversation is a no-op.
func (e *Engine) ForceRollover(ctx context.Context, conversationID string) (*AppendResult, error) {
	lock := e.lock(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := e.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.CtxForce || conv.ClosedAt != nil {
		return &AppendResult{Conversation: conv, Rolled: false}, nil
	}

	count, err := e.store.CountMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return &AppendResult{Conversation: conv, Rolled: false}, nil
	}

	return e.rollover(ctx, conv, "", "", 0)
}

// rollover summarizes the predecessor (strict: a summarization failure aborts
// with nothing closed), then closes it and creates the successor. role/body
// carry the triggering message to replay; empty role means no replay.
func (e *Engine) rollover(ctx context.Context, conv *db.Conversation, role, body string, tokens int) (*AppendResult, error) {
	sum, reused, err := e.summarizer.SummarizeConversation(ctx, conv, body, true)
	if err != nil {
		return nil, err
	}

	var successor *db.Conversation
	var msg *db.Message
	err = e.store.WithTx(ctx, func(tx *db.Store) error {
		if err := tx.CloseConversation(ctx, conv.ID); err != nil {
			return err
		}
		var err error
		successor, err = tx.CreateConversation(ctx, conv.Title, conv.ProviderID, conv.ModelID, conv.ID)
		if err != nil {
			return err
		}
		if role != "" {
			msg, err = tx.InsertMessage(ctx, successor.ID, role, body, tokens)
			if err != nil {
				return err
			}
		}
		if _, err := tx.CreateLink(ctx, "conversation", conv.ID, "summary", sum.ID, db.RelSummarisedAs); err != nil {
			return err
		}
		_, err = tx.CreateLink(ctx, "summary", sum.ID, "conversation", successor.ID, db.RelRolloverTo)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.events.Info(ctx, eventlog.CodeCtxRollover, eventlog.ModuleAIChat,
		fmt.Sprintf("conversation %s rolled over to %s", conv.ID, successor.ID), "",
		map[string]any{"conversation_id": conv.ID, "successor_id": successor.ID,
			"summary_id": sum.ID, "summary_version": sum.Version, "summary_reused": reused})

	return &AppendResult{
		Conversation:  successor,
		Message:       msg,
		TotalTokens:   tokens,
		Warned:        true,
		Rolled:        true,
		Summary:       sum,
		SummaryReused: reused,
	}, nil
}

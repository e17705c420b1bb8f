package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/summary"
)

// SummarizeResult is the stored result of a background summarization job
type SummarizeResult struct {
	SummaryID string `json:"summary_id"`
	Version   int    `json:"version"`
	Reused    bool   `json:"reused"`
}

// SummarizeRunner summarizes conversations and notes in the background
type SummarizeRunner struct {
	store      *db.Store
	summarizer *summary.Summarizer
}

// NewSummarizeRunner creates a SummarizeRunner
func NewSummarizeRunner(store *db.Store, summarizer *summary.Summarizer) *SummarizeRunner {
	return &SummarizeRunner{store: store, summarizer: summarizer}
}

// Handler executes one summarize job
func (r *SummarizeRunner) Handler(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var p SummarizePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid summarize payload: %w", err)
	}

	var sum *db.Summary
	var reused bool
	var err error
	switch p.TargetType {
	case "conversation":
		conv, gerr := r.store.GetConversation(ctx, p.TargetID)
		if gerr == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %s not found", p.TargetID)
		}
		if gerr != nil {
			return nil, gerr
		}
		sum, reused, err = r.summarizer.SummarizeConversation(ctx, conv, "", false)
	case "note":
		note, gerr := r.store.GetNote(ctx, p.TargetID)
		if gerr == sql.ErrNoRows {
			return nil, fmt.Errorf("note %s not found", p.TargetID)
		}
		if gerr != nil {
			return nil, gerr
		}
		excerpts := []string{note.Title, note.Body}
		sum, reused, err = r.summarizer.Summarize(ctx, "note", note.ID, excerpts, false)
	default:
		return nil, fmt.Errorf("unsupported summarize target %q", p.TargetType)
	}
	if err != nil {
		return nil, err
	}

	return json.Marshal(SummarizeResult{SummaryID: sum.ID, Version: sum.Version, Reused: reused})
}

package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/summary"
)

// Job kinds
const (
	KindDailyDigest = "workspace.daily_digest"
	KindSummarize   = "summary.generate"
)

// DigestPayload selects the day to digest (UTC, YYYY-MM-DD; empty = yesterday)
type DigestPayload struct {
	Date string `json:"date,omitempty"`
}

// DigestResult is the stored job result
type DigestResult struct {
	Date          string `json:"date"`
	Notes         int    `json:"notes"`
	Invocations   int    `json:"invocations"`
	Failures      int    `json:"failures"`
	Jobs          int    `json:"jobs"`
	SummaryID     string `json:"summary_id"`
	SummaryReused bool   `json:"summary_reused"`
}

// SummarizePayload targets one record for background summarization
type SummarizePayload struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
}

// Digest builds the per-day logbook entry and timeline from the day's notes
// and runtime events, with the digest text produced through the summary cache
// (so re-running an unchanged day reuses the stored version).
type Digest struct {
	store      *db.Store
	summarizer *summary.Summarizer
	events     *eventlog.Logger
}

// NewDigest creates a Digest
func NewDigest(store *db.Store, summarizer *summary.Summarizer, events *eventlog.Logger) *Digest {
	return &Digest{store: store, summarizer: summarizer, events: events}
}

// Handler adapts Run to the pool's handler signature
func (d *Digest) Handler(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var p DigestPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("invalid digest payload: %w", err)
		}
	}
	result, err := d.Run(ctx, p.Date)
	if err != nil {
		return nil, err
	}
	return json.Marshal(result)
}

// Run digests one day
func (d *Digest) Run(ctx context.Context, date string) (*DigestResult, error) {
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	from := day.Unix()
	to := day.AddDate(0, 0, 1).Unix()

	notes, err := d.store.ListNotesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	invocations, err := d.store.CountEventsSince(ctx, eventlog.ModuleAIRuntime, eventlog.CodeInvokeOK, from, to)
	if err != nil {
		return nil, err
	}
	failures, err := d.store.CountEventsSince(ctx, eventlog.ModuleAIRuntime, eventlog.CodeInvokeFail, from, to)
	if err != nil {
		return nil, err
	}
	jobCount, err := d.store.CountJobsSince(ctx, from, to)
	if err != nil {
		return nil, err
	}

	result := &DigestResult{
		Date:        date,
		Notes:       len(notes),
		Invocations: invocations,
		Failures:    failures,
		Jobs:        jobCount,
	}

	facts := d.buildFacts(date, notes, invocations, failures, jobCount)
	var body string
	if len(notes) == 0 && invocations == 0 && failures == 0 && jobCount == 0 {
		body = fmt.Sprintf("No activity recorded on %s.", date)
		d.events.Info(ctx, eventlog.CodeDigestNoFacts, eventlog.ModuleWorkspace,
			fmt.Sprintf("no facts for %s", date), "", map[string]any{"date": date})
	} else {
		// non-strict: a missing runtime still yields a usable deterministic entry
		sum, reused, err := d.summarizer.Summarize(ctx, "day", date, facts, false)
		if err != nil {
			return nil, err
		}
		body = sum.Body
		result.SummaryID = sum.ID
		result.SummaryReused = reused
	}

	if _, err := d.store.UpsertLogbookEntry(ctx, date, body); err != nil {
		return nil, err
	}
	if err := d.rebuildTimeline(ctx, date, from, to, notes); err != nil {
		return nil, err
	}

	d.events.Info(ctx, eventlog.CodeDigestDone, eventlog.ModuleWorkspace,
		fmt.Sprintf("daily digest written for %s", date), "",
		map[string]any{"date": date, "notes": len(notes), "invocations": invocations, "failures": failures})
	return result, nil
}

func (d *Digest) buildFacts(date string, notes []*db.Note, invocations, failures, jobCount int) []string {
	facts := []string{
		fmt.Sprintf("Date: %s", date),
		fmt.Sprintf("Notes created: %d. AI invocations: %d (%d failed). Jobs processed: %d.",
			len(notes), invocations, failures, jobCount),
	}
	for _, n := range notes {
		excerpt := n.Body
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		facts = append(facts, fmt.Sprintf("Note %q: %s", n.Title, excerpt))
	}
	return facts
}

func (d *Digest) rebuildTimeline(ctx context.Context, date string, from, to int64, notes []*db.Note) error {
	var events []*db.TimelineEvent
	for _, n := range notes {
		label := n.Title
		if label == "" {
			label = "untitled note"
		}
		events = append(events, &db.TimelineEvent{
			EntryDate: date,
			TS:        n.CreatedAt,
			Kind:      "note.created",
			RefType:   "note",
			RefID:     n.ID,
			Label:     label,
		})
	}

	chatEvents, err := d.store.ListEventsBetween(ctx, eventlog.ModuleAIChat, from, to)
	if err != nil {
		return err
	}
	for _, e := range chatEvents {
		if e.Code != eventlog.CodeCtxRollover {
			continue
		}
		events = append(events, &db.TimelineEvent{
			EntryDate: date,
			TS:        e.TS,
			Kind:      "conversation.rollover",
			RefType:   "event",
			RefID:     e.ID,
			Label:     e.Message,
		})
	}

	return d.store.ReplaceTimeline(ctx, date, events)
}

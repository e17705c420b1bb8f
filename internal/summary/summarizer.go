package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkos/inkd/internal/ai"
	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/eventlog"
)

// SettingSummarizerModel optionally pins summarization to a model, either
// "provider/model" or a bare model id on the active provider.
const SettingSummarizerModel = "ai.summarizer_model"

const (
	systemPrompt = "You write concise, factual markdown summaries of workspace records. " +
		"Capture decisions, open questions, and key facts. No preamble, no commentary."

	summaryTemperature = 0.2
	summaryMaxTokens   = 512

	// excerpt selection for conversations
	recentExcerpts  = 12
	keywordExcerpts = 8
	minKeywordLen   = 5
)

// ChatClient is the slice of the router the summarizer needs
type ChatClient interface {
	Chat(ctx context.Context, req *ai.ChatRequest, providerID, model string) (*ai.ChatResponse, error)
}

// Summarizer turns records into cached summaries via the AI router. In
// strict mode an AI failure is the caller's error; otherwise a deterministic
// fallback body is stored so dependent features (digest) keep working offline.
type Summarizer struct {
	store  *db.Store
	cache  *Cache
	client ChatClient
	events *eventlog.Logger
}

// New creates a Summarizer
func New(store *db.Store, cache *Cache, client ChatClient, events *eventlog.Logger) *Summarizer {
	return &Summarizer{store: store, cache: cache, client: client, events: events}
}

// Cache exposes the underlying summary cache
func (s *Summarizer) Cache() *Cache {
	return s.cache
}

// Summarize produces (or reuses) a summary of arbitrary excerpt strings for a
// target. The source hash is computed from the excerpts, so identical inputs
// hit the cache regardless of who asks.
func (s *Summarizer) Summarize(ctx context.Context, targetType, targetID string, excerpts []string, strict bool) (*db.Summary, bool, error) {
	if len(excerpts) == 0 {
		return nil, false, fmt.Errorf("nothing to summarize for %s %s", targetType, targetID)
	}
	sourceHash := HashSource(excerpts)

	sum, reused, err := s.cache.GetOrCreate(ctx, targetType, targetID, sourceHash, func(ctx context.Context) (string, string, error) {
		return s.generate(ctx, targetType, targetID, excerpts, strict)
	})
	if err != nil {
		return nil, false, err
	}
	if !reused {
		s.events.Info(ctx, eventlog.CodeSummary, eventlog.ModuleAIRuntime,
			fmt.Sprintf("summary v%d created for %s %s", sum.Version, targetType, targetID), "",
			map[string]any{"target_type": targetType, "target_id": targetID, "version": sum.Version, "model": sum.ModelID})
	}
	return sum, reused, nil
}

// SummarizeConversation selects excerpts from a conversation's history (plus
// an optional not-yet-persisted pending message) and summarizes them.
func (s *Summarizer) SummarizeConversation(ctx context.Context, conv *db.Conversation, pending string, strict bool) (*db.Summary, bool, error) {
	msgs, err := s.store.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		return nil, false, err
	}
	excerpts := selectExcerpts(msgs, pending)
	if len(excerpts) == 0 {
		return nil, false, fmt.Errorf("conversation %s has no content to summarize", conv.ID)
	}
	return s.Summarize(ctx, "conversation", conv.ID, excerpts, strict)
}

func (s *Summarizer) generate(ctx context.Context, targetType, targetID string, excerpts []string, strict bool) (string, string, error) {
	providerID, model, err := s.summarizerRuntime(ctx)
	if err != nil {
		return "", "", err
	}

	req := &ai.ChatRequest{
		System: systemPrompt,
		Messages: []ai.ChatMessage{{
			Role:    "user",
			Content: "Summarize the following excerpts:\n\n" + strings.Join(excerpts, "\n---\n"),
		}},
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	}

	resp, err := s.client.Chat(ctx, req, providerID, model)
	if err != nil {
		s.events.Error(ctx, eventlog.CodeSummaryErr, eventlog.ModuleAIRuntime,
			fmt.Sprintf("summarization failed for %s %s", targetType, targetID), err.Error(),
			map[string]any{"target_type": targetType, "target_id": targetID})
		if strict {
			return "", "", fmt.Errorf("summarization failed: %w", err)
		}
		return fallbackBody(excerpts), "", nil
	}

	body := strings.TrimSpace(resp.Content)
	if body == "" {
		if strict {
			return "", "", fmt.Errorf("summarizer returned empty content")
		}
		return fallbackBody(excerpts), "", nil
	}
	return body, resp.ProviderID + "/" + resp.Model, nil
}

// summarizerRuntime reads the optional pinned summarizer model setting
func (s *Summarizer) summarizerRuntime(ctx context.Context) (providerID, model string, err error) {
	raw, err := s.store.GetSetting(ctx, SettingSummarizerModel)
	if err != nil {
		return "", "", err
	}
	if raw == "" {
		return "", "", nil
	}
	if p, m, found := strings.Cut(raw, "/"); found {
		return p, m, nil
	}
	return "", raw, nil
}

// fallbackBody is the deterministic no-runtime rendering: the first lines of
// each excerpt, clearly marked as raw.
func fallbackBody(excerpts []string) string {
	var sb strings.Builder
	sb.WriteString("Raw excerpts (no summarizer available):\n")
	for _, e := range excerpts {
		line := e
		if idx := strings.IndexByte(line, '\n'); idx >= 0 {
			line = line[:idx]
		}
		if len(line) > 160 {
			line = line[:160]
		}
		sb.WriteString("- " + line + "\n")
	}
	return sb.String()
}

// selectExcerpts picks the pending message, the most recent turns, and any
// earlier turns sharing significant keywords with the pending text. Order is
// chronological.
func selectExcerpts(msgs []*db.Message, pending string) []string {
	recentStart := len(msgs) - recentExcerpts
	if recentStart < 0 {
		recentStart = 0
	}

	keywords := extractKeywords(pending)
	var earlier []string
	for _, m := range msgs[:recentStart] {
		if len(earlier) >= keywordExcerpts {
			break
		}
		if matchesKeywords(m.Body, keywords) {
			earlier = append(earlier, m.Role+": "+m.Body)
		}
	}

	out := earlier
	for _, m := range msgs[recentStart:] {
		out = append(out, m.Role+": "+m.Body)
	}
	if pending != "" {
		out = append(out, "pending: "+pending)
	}
	return out
}

func extractKeywords(text string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) >= minKeywordLen {
			out[w] = true
		}
		if len(out) >= 16 {
			break
		}
	}
	return out
}

func matchesKeywords(body string, keywords map[string]bool) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(body)
	for k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

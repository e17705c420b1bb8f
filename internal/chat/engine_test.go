package chat

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/inkos/inkd/internal/ai"
	"github.com/inkos/inkd/internal/credential"
	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/provider"
	"github.com/inkos/inkd/internal/summary"
)

type stubClient struct {
	err   error
	calls int
}

func (s *stubClient) Chat(ctx context.Context, req *ai.ChatRequest, providerID, model string) (*ai.ChatResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ai.ChatResponse{ProviderID: "tiny", Model: "mini", Content: "condensed history"}, nil
}

// newTestEngine wires an engine against a provider with a 1000-token window,
// so the warn threshold sits at 750 and the force threshold at 900.
func newTestEngine(t *testing.T, client summary.ChatClient) (*Engine, *db.Store) {
	t.Helper()
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := store.UpsertProvider(ctx, &db.Provider{
		ID:           "tiny",
		Name:         "Tiny",
		Kind:         "local",
		DefaultModel: "mini",
		Models:       []string{"mini"},
		Tags:         []string{"chat", "ctx-1k"},
	}); err != nil {
		t.Fatalf("failed to seed provider: %v", err)
	}

	vault, err := credential.New(bytes.Repeat([]byte{7}, 32), store)
	if err != nil {
		t.Fatalf("failed to build vault: %v", err)
	}
	registry := provider.NewRegistry(store, provider.NewCatalog(filepath.Join(t.TempDir(), "models.yaml")), vault)
	events := eventlog.New(store)
	summarizer := summary.New(store, summary.NewCache(store), client, events)
	return NewEngine(store, registry, summarizer, events), store
}

// 125 tokens by the chars/4 rule (500 runes, 100 words)
func filler() string {
	return strings.TrimSpace(strings.Repeat("word ", 100))
}

func TestAppendWarnsAndRollsOver(t *testing.T) {
	client := &stubClient{}
	engine, store := newTestEngine(t, client)
	ctx := context.Background()

	conv, err := engine.Create(ctx, "long thread", "tiny", "mini")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// five turns stay under the warn threshold (625 of 750)
	for i := 0; i < 5; i++ {
		res, err := engine.Append(ctx, conv.ID, "user", filler())
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if res.Warned {
			t.Fatalf("warned at %d tokens, threshold is 750", res.TotalTokens)
		}
	}

	// sixth turn crosses 750
	res, err := engine.Append(ctx, conv.ID, "user", filler())
	if err != nil {
		t.Fatalf("append 6: %v", err)
	}
	if !res.Warned || res.Rolled {
		t.Errorf("sixth append: warned=%v rolled=%v, want warned only", res.Warned, res.Rolled)
	}

	// seventh stays below the force threshold (875 of 900)
	if res, err = engine.Append(ctx, conv.ID, "user", filler()); err != nil {
		t.Fatalf("append 7: %v", err)
	}
	if res.Rolled {
		t.Error("rolled at 875 tokens, force threshold is 900")
	}

	// eighth would reach 1000: the conversation rolls over
	res, err = engine.Append(ctx, conv.ID, "user", filler())
	if err != nil {
		t.Fatalf("append 8: %v", err)
	}
	if !res.Rolled {
		t.Fatal("expected a rollover on the eighth append")
	}
	successor := res.Conversation
	if successor.ID == conv.ID || successor.ParentID != conv.ID {
		t.Errorf("successor %s should chain to %s", successor.ID, conv.ID)
	}
	if res.Summary == nil {
		t.Fatal("rollover must produce a summary")
	}
	if client.calls != 1 {
		t.Errorf("summarizer invoked %d times, want 1", client.calls)
	}

	// predecessor closed, with the full seven turns
	closed, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get predecessor: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Error("predecessor not closed after rollover")
	}
	if n, _ := store.CountMessages(ctx, conv.ID); n != 7 {
		t.Errorf("predecessor has %d messages, want 7", n)
	}

	// the triggering message lives only in the successor
	if n, _ := store.CountMessages(ctx, successor.ID); n != 1 {
		t.Errorf("successor has %d messages, want 1", n)
	}

	// rollover links: predecessor -> summary -> successor
	links, err := store.ListLinksFrom(ctx, "conversation", conv.ID)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 1 || links[0].Rel != db.RelSummarisedAs || links[0].DstID != res.Summary.ID {
		t.Errorf("missing summarised_as link: %+v", links)
	}
	onward, err := store.ListLinksFrom(ctx, "summary", res.Summary.ID)
	if err != nil {
		t.Fatalf("list summary links: %v", err)
	}
	if len(onward) != 1 || onward[0].Rel != db.RelRolloverTo || onward[0].DstID != successor.ID {
		t.Errorf("missing rollover_to link: %+v", onward)
	}

	// the closed predecessor rejects further appends
	if _, err := engine.Append(ctx, conv.ID, "user", "hello"); !errors.Is(err, ErrConversationClosed) {
		t.Errorf("append to closed conversation: %v", err)
	}
}

func TestAppendRejectsOversizedMessage(t *testing.T) {
	engine, _ := newTestEngine(t, &stubClient{})
	ctx := context.Background()

	conv, err := engine.Create(ctx, "t", "tiny", "mini")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// 900 tokens in one message can never fit under the 900-token force line
	huge := strings.Repeat("word ", 720)
	if _, err := engine.Append(ctx, conv.ID, "user", huge); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}

	// and the conversation is untouched
	res, err := engine.Append(ctx, conv.ID, "user", "still fine")
	if err != nil {
		t.Fatalf("append after rejection: %v", err)
	}
	if res.Rolled || res.Warned {
		t.Error("rejected message must not change lifecycle state")
	}
}

func TestAppendValidation(t *testing.T) {
	engine, _ := newTestEngine(t, &stubClient{})
	ctx := context.Background()

	conv, err := engine.Create(ctx, "t", "tiny", "mini")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := engine.Append(ctx, conv.ID, "robot", "hi"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("bad role: %v", err)
	}
	if _, err := engine.Append(ctx, conv.ID, "user", ""); !errors.Is(err, ErrEmptyBody) {
		t.Errorf("empty body: %v", err)
	}
	if _, err := engine.Append(ctx, "no-such-id", "user", "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("missing conversation: %v", err)
	}
}

func TestForceRollover(t *testing.T) {
	engine, store := newTestEngine(t, &stubClient{})
	ctx := context.Background()

	conv, err := engine.Create(ctx, "t", "tiny", "mini")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// an empty conversation is a no-op
	res, err := engine.ForceRollover(ctx, conv.ID)
	if err != nil {
		t.Fatalf("force rollover empty: %v", err)
	}
	if res.Rolled {
		t.Error("empty conversation should not roll")
	}

	if _, err := engine.Append(ctx, conv.ID, "user", "some content worth keeping"); err != nil {
		t.Fatalf("append: %v", err)
	}
	res, err = engine.ForceRollover(ctx, conv.ID)
	if err != nil {
		t.Fatalf("force rollover: %v", err)
	}
	if !res.Rolled || res.Conversation.ParentID != conv.ID {
		t.Errorf("rolled=%v parent=%s", res.Rolled, res.Conversation.ParentID)
	}
	// no message is replayed on a forced rollover
	if n, _ := store.CountMessages(ctx, res.Conversation.ID); n != 0 {
		t.Errorf("successor has %d messages, want 0", n)
	}

	// the closed predecessor is a no-op too, not an error
	res, err = engine.ForceRollover(ctx, conv.ID)
	if err != nil {
		t.Fatalf("force rollover closed: %v", err)
	}
	if res.Rolled {
		t.Error("closed conversation should not roll again")
	}
}

func TestRolloverAbortsWhenSummarizationFails(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}
	engine, store := newTestEngine(t, client)
	ctx := context.Background()

	conv, err := engine.Create(ctx, "t", "tiny", "mini")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.Append(ctx, conv.ID, "user", "content"); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := engine.ForceRollover(ctx, conv.ID); err == nil {
		t.Fatal("rollover must fail when the summarizer does")
	}

	// nothing mutated: conversation still open, no successor, no links
	open, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if open.ClosedAt != nil {
		t.Error("failed rollover closed the conversation")
	}
	convs, _ := store.ListConversations(ctx, 10)
	if len(convs) != 1 {
		t.Errorf("found %d conversations, want 1", len(convs))
	}
	links, _ := store.ListLinksFrom(ctx, "conversation", conv.ID)
	if len(links) != 0 {
		t.Errorf("failed rollover left links: %+v", links)
	}
}

// A rollover through a keyed provider with no stored secret fails as a config
// error, leaves the conversation untouched, and persists one stable-coded
// runtime event.
func TestRolloverWithoutCredentials(t *testing.T) {
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	if err := store.UpsertProvider(ctx, &db.Provider{
		ID:             "cloudy",
		Name:           "Cloudy",
		Kind:           "cloud",
		DefaultModel:   "big",
		Models:         []string{"big"},
		Tags:           []string{"chat", "ctx-1k"},
		RequiresAPIKey: true,
	}); err != nil {
		t.Fatalf("failed to seed provider: %v", err)
	}

	vault, err := credential.New(bytes.Repeat([]byte{7}, 32), store)
	if err != nil {
		t.Fatalf("failed to build vault: %v", err)
	}
	registry := provider.NewRegistry(store, provider.NewCatalog(filepath.Join(t.TempDir(), "models.yaml")), vault)
	events := eventlog.New(store)
	router := ai.NewRouter(registry, events, true)
	summarizer := summary.New(store, summary.NewCache(store), router, events)
	engine := NewEngine(store, registry, summarizer, events)

	if err := store.SetSetting(ctx, summary.SettingSummarizerModel, "cloudy/big"); err != nil {
		t.Fatalf("set summarizer model: %v", err)
	}

	conv, err := engine.Create(ctx, "t", "cloudy", "big")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 7; i++ {
		if _, err := engine.Append(ctx, conv.ID, "user", filler()); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	// the eighth append crosses the force threshold; no runtime is usable
	_, err = engine.Append(ctx, conv.ID, "user", filler())
	if !errors.Is(err, provider.ErrNoRuntime) {
		t.Fatalf("expected ErrNoRuntime, got %v", err)
	}

	// exactly one runtime event, with its stable code
	recorded, err := store.ListEvents(ctx, eventlog.ModuleAIRuntime, 10)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(recorded) != 1 || recorded[0].Code != eventlog.CodeSummaryErr {
		t.Fatalf("runtime events = %+v, want one %s", recorded, eventlog.CodeSummaryErr)
	}

	// no summary, no job, conversation still open with its seven turns
	if _, err := store.LatestSummary(ctx, "conversation", conv.ID); err == nil {
		t.Error("failed rollover left a summary behind")
	}
	if n, _ := store.CountJobsSince(ctx, 0, time.Now().Unix()+60); n != 0 {
		t.Errorf("failed rollover enqueued %d job(s)", n)
	}
	open, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if open.ClosedAt != nil {
		t.Error("failed rollover closed the conversation")
	}
	if n, _ := store.CountMessages(ctx, conv.ID); n != 7 {
		t.Errorf("conversation has %d messages, want 7", n)
	}
}

func TestSetModelOnClosedConversation(t *testing.T) {
	engine, store := newTestEngine(t, &stubClient{})
	ctx := context.Background()

	conv, err := engine.Create(ctx, "t", "tiny", "mini")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CloseConversation(ctx, conv.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	// settings changes are never rejected for history
	got, err := engine.SetModel(ctx, conv.ID, "tiny", "mini")
	if err != nil {
		t.Fatalf("set model on closed conversation: %v", err)
	}
	if got.ProviderID != "tiny" {
		t.Errorf("provider = %s", got.ProviderID)
	}
}

func TestConfigRatios(t *testing.T) {
	_, store := newTestEngine(t, &stubClient{})
	ctx := context.Background()

	cfg, err := LoadConfig(ctx, store)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.WarnRatio != defaultWarnRatio || cfg.ForceRatio != defaultForceRatio {
		t.Errorf("defaults = %v/%v", cfg.WarnRatio, cfg.ForceRatio)
	}

	cfg.WarnRatio = 0.5
	cfg.ForceRatio = 0.8
	if err := SaveConfig(ctx, store, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadConfig(ctx, store)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.WarnRatio != 0.5 || loaded.ForceRatio != 0.8 {
		t.Errorf("loaded = %v/%v", loaded.WarnRatio, loaded.ForceRatio)
	}

	// nonsense values fall back to the defaults
	if err := store.SetSetting(ctx, SettingWarnRatio, "1.5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	loaded, err = LoadConfig(ctx, store)
	if err != nil {
		t.Fatalf("reload invalid: %v", err)
	}
	if loaded.WarnRatio != defaultWarnRatio {
		t.Errorf("invalid ratio not clamped: %v", loaded.WarnRatio)
	}
}

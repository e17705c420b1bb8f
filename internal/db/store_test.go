package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestConversationsAndMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, "planning", "ollama", "llama3.2", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conv.ClosedAt != nil || conv.CtxWarn || conv.CtxForce {
		t.Error("new conversation should be open with clean flags")
	}

	for i, body := range []string{"first", "second", "third"} {
		if _, err := store.InsertMessage(ctx, conv.ID, "user", body, i+1); err != nil {
			t.Fatalf("insert %s: %v", body, err)
		}
	}

	msgs, err := store.ListMessages(ctx, conv.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Body != "first" || msgs[2].Body != "third" {
		t.Errorf("messages out of order: %+v", msgs)
	}

	// limit returns the most recent N, still oldest-first
	tail, err := store.ListMessages(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(tail) != 2 || tail[0].Body != "second" || tail[1].Body != "third" {
		t.Errorf("limited listing wrong: %+v", tail)
	}

	total, err := store.SumMessageTokens(ctx, conv.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if total != 6 {
		t.Errorf("token total = %d, want 6", total)
	}

	if err := store.CloseConversation(ctx, conv.ID); err != nil {
		t.Fatalf("close: %v", err)
	}
	closed, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if closed.ClosedAt == nil || !closed.CtxForce {
		t.Error("close must set closed_at and the force flag")
	}
}

func TestConversationParentChain(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	parent, err := store.CreateConversation(ctx, "thread", "ollama", "llama3.2", "")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := store.CreateConversation(ctx, "thread", "ollama", "llama3.2", parent.ID)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	got, err := store.GetConversation(ctx, child.ID)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if got.ParentID != parent.ID {
		t.Errorf("parent_id = %q, want %q", got.ParentID, parent.ID)
	}
}

func TestSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v, err := store.GetSetting(ctx, "missing")
	if err != nil || v != "" {
		t.Errorf("missing setting = %q, %v; want empty, nil", v, err)
	}

	if err := store.SetSetting(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.SetSetting(ctx, "k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _ := store.GetSetting(ctx, "k"); v != "v2" {
		t.Errorf("setting = %q, want v2", v)
	}

	if err := store.SetSettingIfMissing(ctx, "k", "v3"); err != nil {
		t.Fatalf("set if missing: %v", err)
	}
	if v, _ := store.GetSetting(ctx, "k"); v != "v2" {
		t.Errorf("SetSettingIfMissing overwrote: %q", v)
	}
}

func TestLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateLink(ctx, "conversation", "c1", "summary", "s1", RelSummarisedAs); err != nil {
		t.Fatalf("create link: %v", err)
	}
	if _, err := store.CreateLink(ctx, "summary", "s1", "conversation", "c2", RelRolloverTo); err != nil {
		t.Fatalf("create link: %v", err)
	}

	links, err := store.ListLinksFrom(ctx, "conversation", "c1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(links) != 1 || links[0].Rel != RelSummarisedAs || links[0].DstID != "s1" {
		t.Errorf("unexpected links: %+v", links)
	}
}

func TestWithTxRollback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.CreateNote(ctx, "will vanish", "body"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	notes, err := store.ListNotes(ctx, 10)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("rolled-back insert persisted: %+v", notes)
	}
}

func TestUpdateConversationModelMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpdateConversationModel(ctx, "nope", "ollama", "llama3.2"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows for missing conversation, got %v", err)
	}
}

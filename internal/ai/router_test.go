package ai

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/inkos/inkd/internal/credential"
	"github.com/inkos/inkd/internal/db"
	"github.com/inkos/inkd/internal/eventlog"
	"github.com/inkos/inkd/internal/provider"
)

type fakeBackend struct {
	id       string
	fail     error
	attempts *[]attempt
}

type attempt struct {
	provider  string
	maxTokens int
}

func (f *fakeBackend) ID() string { return f.id }

func (f *fakeBackend) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	*f.attempts = append(*f.attempts, attempt{provider: f.id, maxTokens: req.MaxTokens})
	if f.fail != nil {
		return nil, f.fail
	}
	return &ChatResponse{ProviderID: f.id, Model: req.Model, Content: "hello"}, nil
}

func newTestRouter(t *testing.T, fail map[string]error, attempts *[]attempt) *Router {
	t.Helper()
	store, err := db.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, id := range []string{"alpha", "beta"} {
		if err := store.UpsertProvider(ctx, &db.Provider{
			ID: id, Name: id, Kind: "local", DefaultModel: "m1", Models: []string{"m1"},
		}); err != nil {
			t.Fatalf("seed provider %s: %v", id, err)
		}
	}
	if err := store.SetSetting(ctx, provider.SettingActive, `{"provider_id":"alpha","model":"m1"}`); err != nil {
		t.Fatalf("set active: %v", err)
	}

	vault, err := credential.New(bytes.Repeat([]byte{1}, 32), store)
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	registry := provider.NewRegistry(store, provider.NewCatalog(filepath.Join(t.TempDir(), "models.yaml")), vault)
	router := NewRouter(registry, eventlog.New(store), false)
	router.newBackend = func(sel *provider.Selection) (Backend, error) {
		return &fakeBackend{id: sel.Provider.ID, fail: fail[sel.Provider.ID], attempts: attempts}, nil
	}
	return router
}

func TestRouterFallsBackToNextProvider(t *testing.T) {
	var attempts []attempt
	router := newTestRouter(t, map[string]error{
		"alpha": errors.New("model not loaded"),
	}, &attempts)

	resp, err := router.Chat(context.Background(), &ChatRequest{
		Messages:  []ChatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: 256,
	}, "", "")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.ProviderID != "beta" {
		t.Errorf("answered by %s, want beta", resp.ProviderID)
	}

	// the permanent failure is not retried on the same provider
	var alphaTries int
	for _, a := range attempts {
		if a.provider == "alpha" {
			alphaTries++
		}
	}
	if alphaTries != 1 {
		t.Errorf("alpha attempted %d times, want 1", alphaTries)
	}
}

func TestRouterRetriesTransientWithReducedBudget(t *testing.T) {
	var attempts []attempt
	router := newTestRouter(t, map[string]error{
		"alpha": ollamaapi.StatusError{StatusCode: 503, ErrorMessage: "overloaded"},
	}, &attempts)

	resp, err := router.Chat(context.Background(), &ChatRequest{
		Messages:  []ChatMessage{{Role: "user", Content: "hi"}},
		MaxTokens: 256,
	}, "", "")
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.ProviderID != "beta" {
		t.Errorf("answered by %s, want beta", resp.ProviderID)
	}

	var alpha []attempt
	for _, a := range attempts {
		if a.provider == "alpha" {
			alpha = append(alpha, a)
		}
	}
	if len(alpha) != 2 {
		t.Fatalf("transient failure attempted %d times on alpha, want 2", len(alpha))
	}
	if alpha[0].maxTokens != 256 || alpha[1].maxTokens != 128 {
		t.Errorf("retry budget = %d then %d, want 256 then 128", alpha[0].maxTokens, alpha[1].maxTokens)
	}
}

func TestRouterAllCandidatesFail(t *testing.T) {
	var attempts []attempt
	router := newTestRouter(t, map[string]error{
		"alpha": errors.New("broken"),
		"beta":  errors.New("also broken"),
	}, &attempts)

	_, err := router.Chat(context.Background(), &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, "", "")
	if !errors.Is(err, provider.ErrNoRuntime) {
		t.Errorf("expected ErrNoRuntime, got %v", err)
	}
}

func TestRouterUnknownProvider(t *testing.T) {
	var attempts []attempt
	router := newTestRouter(t, nil, &attempts)

	_, err := router.Chat(context.Background(), &ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	}, "missing", "")
	if !errors.Is(err, provider.ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"http 429", ollamaapi.StatusError{StatusCode: 429}, true},
		{"http 500", ollamaapi.StatusError{StatusCode: 500}, true},
		{"http 404", ollamaapi.StatusError{StatusCode: 404}, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"plain", errors.New("model not found"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isTransient(tc.err); got != tc.want {
				t.Errorf("isTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

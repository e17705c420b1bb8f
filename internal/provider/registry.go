package provider

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/inkos/inkd/internal/credential"
	"github.com/inkos/inkd/internal/db"
)

// Sentinel errors surfaced by runtime resolution
var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrProviderNotConfigured = errors.New("provider requires an API key")
	ErrNoRuntime             = errors.New("no AI runtime available")
)

// SettingActive is the app_settings key holding the process default runtime
const SettingActive = "ai.active"

// defaultContextWindow applies when neither catalog nor tags say anything
const defaultContextWindow = 4096

// ActiveSetting is the JSON shape of the ai.active setting
type ActiveSetting struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
}

// Info is the API-safe view of a provider: everything except secrets
type Info struct {
	*db.Provider
	HasCredentials bool `json:"has_credentials"`
}

// Selection is a fully resolved runtime: provider row, model, opened secret
type Selection struct {
	Provider *db.Provider
	Model    string
	Secret   string
}

// Registry manages the provider table, the active-runtime setting and
// runtime resolution.
type Registry struct {
	store   *db.Store
	catalog *Catalog
	vault   *credential.Vault
}

// NewRegistry creates a Registry
func NewRegistry(store *db.Store, catalog *Catalog, vault *credential.Vault) *Registry {
	return &Registry{store: store, catalog: catalog, vault: vault}
}

// SeedDefaults upserts the fixed provider set and the default active runtime
// (first local provider). Idempotent.
func (r *Registry) SeedDefaults(ctx context.Context) error {
	for _, p := range seedProviders {
		if err := r.store.UpsertProvider(ctx, p); err != nil {
			return err
		}
	}
	def := ActiveSetting{ProviderID: "ollama", Model: "llama3.2"}
	b, _ := json.Marshal(def)
	return r.store.SetSettingIfMissing(ctx, SettingActive, string(b))
}

// List returns all providers with credential presence flags
func (r *Registry) List(ctx context.Context) ([]*Info, error) {
	providers, err := r.store.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Info, 0, len(providers))
	for _, p := range providers {
		has, err := r.vault.HasSecret(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &Info{Provider: p, HasCredentials: has})
	}
	return out, nil
}

// Get returns one provider with its credential flag
func (r *Registry) Get(ctx context.Context, id string) (*Info, error) {
	p, err := r.store.GetProvider(ctx, id)
	if err == sql.ErrNoRows {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}
	has, err := r.vault.HasSecret(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &Info{Provider: p, HasCredentials: has}, nil
}

// Active returns the process default runtime setting
func (r *Registry) Active(ctx context.Context) (ActiveSetting, error) {
	var active ActiveSetting
	raw, err := r.store.GetSetting(ctx, SettingActive)
	if err != nil {
		return active, err
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &active); err != nil {
			return active, fmt.Errorf("invalid %s setting: %w", SettingActive, err)
		}
	}
	return active, nil
}

// SetActive updates the process default runtime. The provider must exist and
// the model is clamped to its known model list.
func (r *Registry) SetActive(ctx context.Context, providerID, model string) (ActiveSetting, error) {
	p, err := r.store.GetProvider(ctx, providerID)
	if err == sql.ErrNoRows {
		return ActiveSetting{}, ErrProviderNotFound
	}
	if err != nil {
		return ActiveSetting{}, err
	}
	active := ActiveSetting{ProviderID: p.ID, Model: clampModel(p, model)}
	b, _ := json.Marshal(active)
	return active, r.store.SetSetting(ctx, SettingActive, string(b))
}

// SetBaseURL updates where a provider's endpoint lives
func (r *Registry) SetBaseURL(ctx context.Context, providerID, baseURL string) error {
	if _, err := r.Get(ctx, providerID); err != nil {
		return err
	}
	return r.store.UpdateProviderBaseURL(ctx, providerID, baseURL)
}

// SetCredential seals and stores a provider API key (write-once semantics:
// replace or delete, never read back).
func (r *Registry) SetCredential(ctx context.Context, providerID, apiKey string) error {
	if _, err := r.Get(ctx, providerID); err != nil {
		return err
	}
	if apiKey == "" {
		return r.vault.DeleteSecret(ctx, providerID)
	}
	return r.vault.SetSecret(ctx, providerID, apiKey)
}

// Pin validates a provider/model pair for pinning to a conversation. No
// credential check: keys are enforced at invocation, not at selection.
func (r *Registry) Pin(ctx context.Context, providerID, model string) (string, string, error) {
	if providerID == "" {
		active, err := r.Active(ctx)
		if err != nil {
			return "", "", err
		}
		providerID = active.ProviderID
		if model == "" {
			model = active.Model
		}
	}
	p, err := r.store.GetProvider(ctx, providerID)
	if err == sql.ErrNoRows {
		return "", "", ErrProviderNotFound
	}
	if err != nil {
		return "", "", err
	}
	return p.ID, clampModel(p, model), nil
}

// ContextWindowFor resolves the window for a provider id, tolerating unknown
// providers with the conservative default.
func (r *Registry) ContextWindowFor(ctx context.Context, providerID, model string) int {
	p, err := r.store.GetProvider(ctx, providerID)
	if err != nil {
		return defaultContextWindow
	}
	return r.ContextWindow(p, model)
}

// Resolve picks the runtime for a call. Explicit overrides win, then the
// active setting. The model is clamped to the resolved provider's list. A
// provider that requires a key without one stored is not usable.
func (r *Registry) Resolve(ctx context.Context, providerID, model string) (*Selection, error) {
	if providerID == "" {
		active, err := r.Active(ctx)
		if err != nil {
			return nil, err
		}
		providerID = active.ProviderID
		if model == "" {
			model = active.Model
		}
	}
	if providerID == "" {
		return nil, ErrNoRuntime
	}

	p, err := r.store.GetProvider(ctx, providerID)
	if err == sql.ErrNoRows {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.selection(ctx, p, model)
}

func (r *Registry) selection(ctx context.Context, p *db.Provider, model string) (*Selection, error) {
	secret := ""
	if p.RequiresAPIKey {
		s, err := r.vault.GetSecret(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotConfigured, p.ID)
		}
		secret = s
	}
	return &Selection{Provider: p, Model: clampModel(p, model), Secret: secret}, nil
}

// Candidates builds the fallback chain for an invocation: the resolved
// primary first, then the remaining usable providers, local runtimes ahead of
// cloud ones. Cloud fallbacks are included only when allowCloud is set.
// Unconfigured providers are skipped, not errors.
func (r *Registry) Candidates(ctx context.Context, providerID, model string, allowCloud bool) ([]*Selection, error) {
	var out []*Selection
	seen := map[string]bool{}

	if primary, err := r.Resolve(ctx, providerID, model); err == nil {
		out = append(out, primary)
		seen[primary.Provider.ID] = true
	} else if errors.Is(err, ErrProviderNotFound) {
		return nil, err
	}

	providers, err := r.store.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range providers {
		if seen[p.ID] {
			continue
		}
		if p.Kind == "cloud" && !allowCloud {
			continue
		}
		sel, err := r.selection(ctx, p, "")
		if err != nil {
			continue
		}
		out = append(out, sel)
	}

	if len(out) == 0 {
		return nil, ErrNoRuntime
	}
	return out, nil
}

// ContextWindow resolves the usable window for a provider/model: catalog
// first, then ctx-* capability tags, then a "32k" model-name hint, then the
// conservative default.
func (r *Registry) ContextWindow(p *db.Provider, model string) int {
	if r.catalog != nil {
		if w := r.catalog.ContextWindow(p.ID, model); w > 0 {
			return w
		}
	}
	for _, tag := range p.Tags {
		if w := parseContextTag(tag); w > 0 {
			return w
		}
	}
	if strings.Contains(strings.ToLower(model), "32k") {
		return 32000
	}
	return defaultContextWindow
}

// parseContextTag parses "ctx-8k" or "ctx-4096" style tags, 0 when not one
func parseContextTag(tag string) int {
	rest, ok := strings.CutPrefix(tag, "ctx-")
	if !ok {
		return 0
	}
	mult := 1
	if k, ok := strings.CutSuffix(rest, "k"); ok {
		rest = k
		mult = 1000
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0
	}
	return n * mult
}

// clampModel falls back to the provider default when the requested model is
// unknown, and to the first listed model when there is no default.
func clampModel(p *db.Provider, model string) string {
	if model != "" {
		for _, m := range p.Models {
			if m == model {
				return model
			}
		}
	}
	if p.DefaultModel != "" {
		return p.DefaultModel
	}
	if len(p.Models) > 0 {
		return p.Models[0]
	}
	return model
}

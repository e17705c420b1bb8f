package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Provider is a row from ai_providers. Models and Tags are stored as JSON
// arrays; tags carry capabilities like "chat" and context hints like "ctx-8k".
type Provider struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind"` // local | cloud
	BaseURL        string   `json:"base_url,omitempty"`
	DefaultModel   string   `json:"default_model"`
	Models         []string `json:"models"`
	Tags           []string `json:"tags"`
	RequiresAPIKey bool     `json:"requires_api_key"`
	CreatedAt      int64    `json:"created_at"`
	UpdatedAt      int64    `json:"updated_at"`
}

const providerCols = "id, name, kind, base_url, default_model, models, tags, requires_api_key, created_at, updated_at"

func scanProvider(row interface{ Scan(...any) error }) (*Provider, error) {
	var p Provider
	var models, tags string
	err := row.Scan(&p.ID, &p.Name, &p.Kind, &p.BaseURL, &p.DefaultModel, &models, &tags, &p.RequiresAPIKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(models), &p.Models); err != nil {
		p.Models = nil
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		p.Tags = nil
	}
	return &p, nil
}

// UpsertProvider inserts or refreshes a provider row, preserving base_url
// edits the user already made.
func (s *Store) UpsertProvider(ctx context.Context, p *Provider) error {
	models, _ := json.Marshal(p.Models)
	tags, _ := json.Marshal(p.Tags)
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO ai_providers (id, name, kind, base_url, default_model, models, tags, requires_api_key, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			default_model = excluded.default_model,
			models = excluded.models,
			tags = excluded.tags,
			requires_api_key = excluded.requires_api_key,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, p.Kind, p.BaseURL, p.DefaultModel, string(models), string(tags), p.RequiresAPIKey, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert provider %s: %w", p.ID, err)
	}
	return nil
}

// GetProvider returns a provider by id, or sql.ErrNoRows
func (s *Store) GetProvider(ctx context.Context, id string) (*Provider, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+providerCols+" FROM ai_providers WHERE id = ?", id)
	return scanProvider(row)
}

// ListProviders returns all providers, local runtimes first
func (s *Store) ListProviders(ctx context.Context) ([]*Provider, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+providerCols+" FROM ai_providers ORDER BY kind = 'local' DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProviderBaseURL changes where a provider's endpoint lives
func (s *Store) UpdateProviderBaseURL(ctx context.Context, id, baseURL string) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE ai_providers SET base_url = ?, updated_at = ? WHERE id = ?",
		baseURL, time.Now().Unix(), id,
	)
	return err
}

// SetCredential stores an already-sealed secret for a provider
func (s *Store) SetCredential(ctx context.Context, providerID, sealed string) error {
	now := time.Now().Unix()
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO ai_credentials (provider_id, secret_enc, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(provider_id) DO UPDATE SET secret_enc = excluded.secret_enc, updated_at = excluded.updated_at`,
		providerID, sealed, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// GetCredential returns the sealed secret for a provider, or sql.ErrNoRows
func (s *Store) GetCredential(ctx context.Context, providerID string) (string, error) {
	var sealed string
	err := s.q.QueryRowContext(ctx,
		"SELECT secret_enc FROM ai_credentials WHERE provider_id = ?", providerID,
	).Scan(&sealed)
	return sealed, err
}

// DeleteCredential removes a provider's stored secret
func (s *Store) DeleteCredential(ctx context.Context, providerID string) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM ai_credentials WHERE provider_id = ?", providerID)
	return err
}

// HasCredential reports whether a secret exists without opening it
func (s *Store) HasCredential(ctx context.Context, providerID string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ai_credentials WHERE provider_id = ?", providerID,
	).Scan(&n)
	return n > 0, err
}

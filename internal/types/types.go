package types

import "encoding/json"

// CreateConversationRequest starts a thread; empty provider uses the active runtime
type CreateConversationRequest struct {
	Title      string `json:"title"`
	ProviderID string `json:"provider_id,omitempty"`
	ModelID    string `json:"model_id,omitempty"`
}

// AppendMessageRequest adds one turn to a conversation
type AppendMessageRequest struct {
	ID   string `path:"id" json:"-"`
	Role string `json:"role"`
	Body string `json:"body"`
}

// SetModelRequest re-pins a conversation's provider/model
type SetModelRequest struct {
	ID         string `path:"id" json:"-"`
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id,omitempty"`
}

// SummarizeRequest produces (or reuses) a summary for a target record
type SummarizeRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
}

// ActiveRuntime names the process default provider/model
type ActiveRuntime struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
}

// ProviderUpdate edits one provider's endpoint or credential. A nil APIKey
// leaves the credential alone; an empty one deletes it. Keys are write-once:
// nothing here ever returns one.
type ProviderUpdate struct {
	ID      string  `json:"id"`
	BaseURL *string `json:"base_url,omitempty"`
	APIKey  *string `json:"api_key,omitempty"`
}

// UpdateSettingsRequest changes any subset of the AI settings
type UpdateSettingsRequest struct {
	Active          *ActiveRuntime   `json:"active,omitempty"`
	WarnRatio       *float64         `json:"warn_ratio,omitempty"`
	ForceRatio      *float64         `json:"force_ratio,omitempty"`
	SummarizerModel *string          `json:"summarizer_model,omitempty"`
	Providers       []ProviderUpdate `json:"providers,omitempty"`
}

// SettingsResponse is the full mutable AI settings view
type SettingsResponse struct {
	Active          ActiveRuntime `json:"active"`
	WarnRatio       float64       `json:"warn_ratio"`
	ForceRatio      float64       `json:"force_ratio"`
	SummarizerModel string        `json:"summarizer_model,omitempty"`
}

// EnqueueJobRequest queues a background job; run_now executes it inline
type EnqueueJobRequest struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
	RunAt   *int64          `json:"run_at,omitempty"`
	RunNow  bool            `json:"run_now,omitempty"`
}

// DigestRequest runs the daily digest for a date (empty = yesterday UTC)
type DigestRequest struct {
	Date string `json:"date,omitempty"`
}

// CreateNoteRequest adds a workspace note
type CreateNoteRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

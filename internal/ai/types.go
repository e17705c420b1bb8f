package ai

import "context"

// ChatMessage is one turn of input to a backend
type ChatMessage struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral completion request
type ChatRequest struct {
	Messages    []ChatMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	Model       string        `json:"model,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// Usage reports token consumption as the provider measured it
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the assistant's reply plus attribution
type ChatResponse struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
	Content    string `json:"content"`
	Usage      Usage  `json:"usage"`
}

// Backend is one AI runtime variant. Implementations are cheap to construct
// and built per call from the resolved provider selection.
type Backend interface {
	ID() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaBackend talks to a local Ollama server using the official SDK
type OllamaBackend struct {
	client *api.Client
	model  string
}

// NewOllamaBackend creates an Ollama backend
func NewOllamaBackend(baseURL, model string) *OllamaBackend {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		parsedURL, _ = url.Parse("http://127.0.0.1:11434")
	}

	httpClient := &http.Client{
		Timeout: 5 * time.Minute, // local inference can be slow
	}

	return &OllamaBackend{
		client: api.NewClient(parsedURL, httpClient),
		model:  model,
	}
}

// ID returns the provider identifier
func (b *OllamaBackend) ID() string {
	return "ollama"
}

// Chat sends a non-streaming chat request
func (b *OllamaBackend) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := b.model
	if req.Model != "" {
		model = req.Model
	}

	var messages []api.Message
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, api.Message{Role: msg.Role, Content: msg.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		chatReq.Options = make(map[string]any)
		if req.Temperature > 0 {
			chatReq.Options["temperature"] = req.Temperature
		}
		if req.MaxTokens > 0 {
			chatReq.Options["num_predict"] = req.MaxTokens
		}
	}

	var out *ChatResponse
	err := b.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		out = &ChatResponse{
			ProviderID: "ollama",
			Model:      model,
			Content:    resp.Message.Content,
			Usage: Usage{
				PromptTokens:     resp.Metrics.PromptEvalCount,
				CompletionTokens: resp.Metrics.EvalCount,
			},
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("ollama returned no response")
	}
	return out, nil
}

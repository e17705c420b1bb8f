package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend talks to the Google Gemini API
type GeminiBackend struct {
	apiKey string
	model  string
}

// NewGeminiBackend creates a Gemini backend. The genai client is built per
// call because it owns a connection that must be closed.
func NewGeminiBackend(apiKey, model string) *GeminiBackend {
	return &GeminiBackend{apiKey: apiKey, model: model}
}

// ID returns the provider identifier
func (b *GeminiBackend) ID() string {
	return "google"
}

// Chat sends a non-streaming generate request
func (b *GeminiBackend) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := b.model
	if req.Model != "" {
		model = req.Model
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(b.apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client failed: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(model)
	if req.Temperature > 0 {
		gm.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	system := req.System
	var history []*genai.Content
	var last genai.Part
	for i, msg := range req.Messages {
		role := "user"
		switch msg.Role {
		case "system":
			if system == "" {
				system = msg.Content
			} else {
				system += "\n\n" + msg.Content
			}
			continue
		case "assistant":
			role = "model"
		}
		if i == len(req.Messages)-1 && role == "user" {
			last = genai.Text(msg.Content)
			continue
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if last == nil {
		// conversation ended on an assistant turn; prompt for continuation
		last = genai.Text("")
	}

	cs := gm.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, last)
	if err != nil {
		return nil, fmt.Errorf("gemini chat failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	out := &ChatResponse{
		ProviderID: "google",
		Model:      model,
		Content:    sb.String(),
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIBackend talks to the OpenAI chat completions API. It also serves any
// openai-compatible endpoint (LM Studio) via a base URL override.
type OpenAIBackend struct {
	client openai.Client
	id     string
	model  string
}

// NewOpenAIBackend creates an OpenAI-protocol backend. id distinguishes
// "openai" from compatible providers like "lmstudio".
func NewOpenAIBackend(id, apiKey, baseURL, model string) *OpenAIBackend {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		// compatible local servers ignore the key but the SDK wants one
		opts = append(opts, option.WithAPIKey("not-needed"))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIBackend{
		client: openai.NewClient(opts...),
		id:     id,
		model:  model,
	}
}

// ID returns the provider identifier
func (b *OpenAIBackend) ID() string {
	return b.id
}

// Chat sends a non-streaming completion request
func (b *OpenAIBackend) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := b.model
	if req.Model != "" {
		model = req.Model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: messages,
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat failed: %w", b.id, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", b.id)
	}

	return &ChatResponse{
		ProviderID: b.id,
		Model:      model,
		Content:    completion.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
		},
	}, nil
}

package ai

import (
	"fmt"

	"github.com/inkos/inkd/internal/provider"
)

// NewBackend builds the backend variant for a resolved runtime selection.
// Unknown local providers are assumed openai-compatible; unknown cloud
// providers are an error.
func NewBackend(sel *provider.Selection) (Backend, error) {
	p := sel.Provider
	switch p.ID {
	case "openai":
		return NewOpenAIBackend("openai", sel.Secret, p.BaseURL, sel.Model), nil
	case "lmstudio":
		return NewOpenAIBackend("lmstudio", sel.Secret, p.BaseURL, sel.Model), nil
	case "anthropic":
		return NewAnthropicBackend(sel.Secret, sel.Model), nil
	case "google":
		return NewGeminiBackend(sel.Secret, sel.Model), nil
	case "ollama":
		return NewOllamaBackend(p.BaseURL, sel.Model), nil
	}
	if p.Kind == "local" && p.BaseURL != "" {
		return NewOpenAIBackend(p.ID, sel.Secret, p.BaseURL, sel.Model), nil
	}
	return nil, fmt.Errorf("unknown provider %q", p.ID)
}

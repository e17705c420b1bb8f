package provider

import "github.com/inkos/inkd/internal/db"

// seedProviders is the fixed provider set. Rows are upserted at startup so
// new builds can ship catalog updates, but user edits to base_url survive.
var seedProviders = []*db.Provider{
	{
		ID:           "ollama",
		Name:         "Ollama",
		Kind:         "local",
		BaseURL:      "http://127.0.0.1:11434",
		DefaultModel: "llama3.2",
		Models:       []string{"llama3.2", "llama3.2:1b", "qwen2.5", "mistral"},
		Tags:         []string{"chat", "ctx-8k"},
	},
	{
		ID:           "lmstudio",
		Name:         "LM Studio",
		Kind:         "local",
		BaseURL:      "http://127.0.0.1:1234/v1",
		DefaultModel: "local-model",
		Models:       []string{"local-model"},
		Tags:         []string{"chat", "ctx-4096"},
	},
	{
		ID:             "openai",
		Name:           "OpenAI",
		Kind:           "cloud",
		DefaultModel:   "gpt-4o-mini",
		Models:         []string{"gpt-4o-mini", "gpt-4o", "gpt-4.1-mini"},
		Tags:           []string{"chat", "ctx-128k"},
		RequiresAPIKey: true,
	},
	{
		ID:             "anthropic",
		Name:           "Anthropic",
		Kind:           "cloud",
		DefaultModel:   "claude-3-5-haiku-latest",
		Models:         []string{"claude-3-5-haiku-latest", "claude-sonnet-4-5"},
		Tags:           []string{"chat", "ctx-200k"},
		RequiresAPIKey: true,
	},
	{
		ID:             "google",
		Name:           "Google Gemini",
		Kind:           "cloud",
		DefaultModel:   "gemini-2.0-flash",
		Models:         []string{"gemini-2.0-flash", "gemini-2.5-pro"},
		Tags:           []string{"chat", "ctx-128k"},
		RequiresAPIKey: true,
	},
}

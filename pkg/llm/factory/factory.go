package factory

import (
	"fmt"
	"net/http"

	"couple-summary-be/pkg/llm"
	"couple-summary-be/pkg/llm/gemini"
	"couple-summary-be/pkg/llm/ollama"
)

type Config struct {
	Provider  string
	ModelName string
	BaseURL   string
	APIKey    string
}

func NewLLMProvider(cfg Config, httpClient *http.Client) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(cfg.BaseURL, cfg.APIKey, cfg.ModelName, httpClient), nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.ModelName, httpClient), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

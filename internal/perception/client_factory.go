package perception

import (
	"fmt"

	"orbit/internal/config"
)

// NewClient constructs the LLM client selected by config.
func NewClient(cfg *config.Config) (LLMClient, error) {
	timeout, err := cfg.LLMTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid llm timeout: %w", err)
	}

	switch cfg.LLM.Provider {
	case "gemini":
		return NewGeminiClient(cfg.LLM.APIKey, cfg.LLM.Model)
	case "openai", "":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLM.Provider)
	}
}

package provider

import (
	"context"
	"fmt"
	"time"

	"shop-assistant/internal/config"
	Iservices "shop-assistant/internal/domain/interfaces/services"
)

var (
	_ Iservices.ITextGenerationProvider = (*OpenAIProvider)(nil)
	_ Iservices.ITextGenerationProvider = (*GeminiProvider)(nil)
)

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Iservices.ITextGenerationProvider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIURL, cfg.OpenAIModel, timeout), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

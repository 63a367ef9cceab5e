package provider

import (
	"fmt"
	"strings"

	"lovebug/model"
)

// NewProvider creates a provider based on configuration.
//
// Returns an error if the provider type is unknown or the provider-specific
// constructor rejects the configuration (e.g. a missing API key).
func NewProvider(cfg Config) (model.Provider, error) {
	switch cfg.Type {
	case ProviderTypeCustom:
		return NewSSEProvider(cfg.SSE, cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOpenAI:
		return NewOpenAIProvider(openAIBaseURL(cfg.BaseURL), cfg.APIKey, cfg.Model)
	case ProviderTypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case ProviderTypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// MapModelType converts the model type stored in settings to a ProviderType.
//
// Mappings:
//   - "openai" → ProviderTypeOpenAI
//   - "claude", "anthropic" → ProviderTypeAnthropic
//   - "ollama" → ProviderTypeOllama
//   - "custom", "" → ProviderTypeCustom
//
// For unknown values, returns the value cast as ProviderType (factory will error).
func MapModelType(modelType string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(modelType)) {
	case "openai":
		return ProviderTypeOpenAI
	case "claude", "anthropic":
		return ProviderTypeAnthropic
	case "ollama":
		return ProviderTypeOllama
	case "custom", "":
		return ProviderTypeCustom
	default:
		return ProviderType(modelType)
	}
}

// openAIBaseURL accepts either an API base or a full chat-completions
// endpoint, which is how the extension settings store it.
func openAIBaseURL(endpoint string) string {
	return strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/chat/completions")
}

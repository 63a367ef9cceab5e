package provider

import (
	"lovebug/config"
	"lovebug/model"
	"lovebug/sse"
)

// SSEConfig derives the completion client configuration from the loaded
// application config.
func SSEConfig(cfg *config.Config) sse.Config {
	return sse.Config{
		Endpoint:          cfg.Endpoint,
		APIKey:            cfg.APIKey(),
		Model:             cfg.Model,
		SigningSecret:     cfg.SigningSecret(),
		Timeout:           cfg.Timeout,
		MaxInputLength:    cfg.MaxInputLength,
		MaxResponseLength: cfg.MaxResponseLength,
		RateLimit:         cfg.RateLimit,
		RateWindow:        cfg.RateWindow,
		MaxRetries:        cfg.MaxRetries,
	}
}

// FromConfig creates the provider selected by cfg.ModelType. The custom
// provider reuses client so callers keep one rate limiter and one circuit
// breaker for the endpoint.
func FromConfig(cfg *config.Config, client *sse.Client) (model.Provider, error) {
	providerType := MapModelType(cfg.ModelType)

	if config.Debug {
		config.DebugLog.Printf("[Provider] Initializing %s provider (model %q)", providerType, cfg.Model)
	}

	baseURL := cfg.Endpoint
	switch providerType {
	case ProviderTypeAnthropic, ProviderTypeOllama:
		// The default endpoint is OpenAI's; let these use their own.
		if baseURL == config.DefaultEndpoint {
			baseURL = ""
		}
	}

	return NewProvider(Config{
		Type:    providerType,
		BaseURL: baseURL,
		Model:   cfg.Model,
		APIKey:  cfg.APIKey(),
		SSE:     client,
	})
}

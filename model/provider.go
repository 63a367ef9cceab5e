package model

import "context"

// Provider abstracts the chat backends (the SSE endpoint, OpenAI, Anthropic,
// Ollama).
//
// This interface is defined in the model package (not provider package) to avoid
// import cycles: provider implementations import model, and the plugin and ui
// layers can depend on Provider without importing the provider package.
type Provider interface {
	// Chat sends messages and streams responses back via callback.
	Chat(ctx context.Context, messages []Message, callback StreamCallback) error

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// GetDisplayName returns the model name formatted for UI display.
	GetDisplayName() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// StreamCallback is called for each chunk of streamed response. Returning an
// error stops the stream.
type StreamCallback func(chunk string) error

// ModelInfo describes a model offered by a provider.
type ModelInfo struct {
	Name     string
	Size     int64
	Provider string
}

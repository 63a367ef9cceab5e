// Package provider implements model.Provider for the chat backends Lovebug
// can talk to: the extension's own SSE completion endpoint, OpenAI,
// Anthropic and a local Ollama server.
//
// Every provider also offers Complete, so any of them can back the
// prompt-driven plugins:
//
//	p, err := provider.NewProvider(provider.Config{
//	    Type:   provider.ProviderTypeOpenAI,
//	    APIKey: key,
//	    Model:  "gpt-4o-mini",
//	})
//	if err != nil {
//	    // handle error
//	}
//	exec := plugin.NewPromptExecutor(p)
package provider

import (
	"context"
	"fmt"
	"strings"

	"lovebug/model"
	"lovebug/sse"
)

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeCustom    ProviderType = "custom"
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOllama    ProviderType = "ollama"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama

	// SSE is the client the custom provider streams through. When nil the
	// factory builds one from BaseURL, APIKey and Model.
	SSE *sse.Client
}

// complete runs a two-message conversation through p and joins the chunks.
func complete(ctx context.Context, p model.Provider, systemPrompt, prompt string) (string, error) {
	messages := make([]model.Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, model.NewMessage(model.RoleSystem, systemPrompt))
	}
	messages = append(messages, model.NewMessage(model.RoleUser, prompt))

	var b strings.Builder
	err := p.Chat(ctx, messages, func(chunk string) error {
		b.WriteString(chunk)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// Completer adapts any model.Provider to the single-shot completion the
// plugins use.
type Completer struct {
	Provider model.Provider
}

func (c Completer) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if c.Provider == nil {
		return "", fmt.Errorf("no provider configured")
	}
	return complete(ctx, c.Provider, systemPrompt, prompt)
}

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ollama/ollama/api"

	"lovebug/model"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.1:latest"
	ollamaPingTimeout  = 5 * time.Second
)

// OllamaProvider talks to a local Ollama server through its API client.
type OllamaProvider struct {
	client  *api.Client
	baseURL string

	mu    sync.RWMutex
	model string
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL. Defaults to "http://localhost:11434".
//   - model: The model name to use. Defaults to "llama3.1:latest".
//
// Returns an error if baseURL cannot be parsed.
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	return newOllamaProvider(baseURL, model, http.DefaultClient)
}

func newOllamaProvider(baseURL, model string, hc *http.Client) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaProvider{
		client:  api.NewClient(parsed, hc),
		baseURL: baseURL,
		model:   model,
	}, nil
}

func (p *OllamaProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	stream := true
	req := &api.ChatRequest{
		Model:    p.GetModel(),
		Messages: ConvertToOllamaMessages(messages),
		Stream:   &stream,
	}

	return p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		if callback == nil || resp.Message.Content == "" {
			return nil
		}
		return callback(resp.Message.Content)
	})
}

func (p *OllamaProvider) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	return complete(ctx, p, systemPrompt, prompt)
}

func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:     m.Name,
			Size:     m.Size,
			Provider: string(ProviderTypeOllama),
		}
	}
	return models, nil
}

func (p *OllamaProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

func (p *OllamaProvider) GetDisplayName() string {
	return p.GetModel()
}

func (p *OllamaProvider) SetModel(model string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = model
}

// Ping checks the server with a model listing under a short timeout.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ollamaPingTimeout)
	defer cancel()

	if _, err := p.client.List(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}

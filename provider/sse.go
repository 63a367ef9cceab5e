package provider

import (
	"context"
	"fmt"
	"sync"

	"lovebug/model"
	"lovebug/sse"
)

// SSEProvider streams through the extension's own completion endpoint.
type SSEProvider struct {
	client *sse.Client

	mu   sync.RWMutex
	opts sse.Options
}

// NewSSEProvider wraps client. When client is nil a new one is configured
// from endpoint, apiKey and model.
func NewSSEProvider(client *sse.Client, endpoint, apiKey, model string) (*SSEProvider, error) {
	if client == nil {
		if endpoint == "" {
			return nil, fmt.Errorf("custom provider requires an endpoint")
		}
		client = sse.NewClient()
		client.SetConfig(sse.Config{Endpoint: endpoint, APIKey: apiKey, Model: model})
	}
	return &SSEProvider{client: client}, nil
}

// Client returns the underlying SSE client.
func (p *SSEProvider) Client() *sse.Client {
	return p.client
}

// SetOptions sets the per-request options (user and session ids, sampling)
// used by later calls.
func (p *SSEProvider) SetOptions(opts sse.Options) {
	p.mu.Lock()
	p.opts = opts
	p.mu.Unlock()
}

func (p *SSEProvider) options() sse.Options {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.opts
}

func (p *SSEProvider) Chat(ctx context.Context, messages []model.Message, callback model.StreamCallback) error {
	s := p.client.StreamMessages(ctx, messages, p.options())
	defer s.Close()

	for s.Next() {
		if callback == nil {
			continue
		}
		if err := callback(s.Text()); err != nil {
			return err
		}
	}
	return s.Err()
}

// Complete sends a single prompt, with the system prompt carried as the
// request's systemPrompt field.
func (p *SSEProvider) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	opts := p.options()
	opts.SystemPrompt = systemPrompt
	return p.client.SendMessage(ctx, prompt, opts)
}

// ListModels reports the configured model only; the endpoint has no
// listing call.
func (p *SSEProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	name := p.GetModel()
	if name == "" {
		return nil, nil
	}
	return []model.ModelInfo{{Name: name, Provider: string(ProviderTypeCustom)}}, nil
}

func (p *SSEProvider) GetModel() string {
	cfg, _ := p.client.Config()
	return cfg.Model
}

func (p *SSEProvider) GetDisplayName() string {
	if m := p.GetModel(); m != "" {
		return m
	}
	return string(ProviderTypeCustom)
}

func (p *SSEProvider) SetModel(model string) {
	cfg, ok := p.client.Config()
	if !ok {
		return
	}
	cfg.Model = model
	p.client.SetConfig(cfg)
}

// Ping probes the endpoint's health route.
func (p *SSEProvider) Ping(ctx context.Context) error {
	if !p.client.Configured() {
		return sse.ErrNotConfigured
	}
	if !p.client.CheckConnection(ctx) {
		return sse.ErrTransport
	}
	return nil
}

package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovebug/model"
	"lovebug/plugin"
	"lovebug/sse"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		expectType  any
	}{
		{
			name:       "ollama provider with defaults",
			config:     Config{Type: ProviderTypeOllama},
			expectType: &OllamaProvider{},
		},
		{
			name: "openai provider",
			config: Config{
				Type:    ProviderTypeOpenAI,
				BaseURL: "https://api.openai.com/v1/chat/completions",
				Model:   "gpt-4o-mini",
				APIKey:  "test-key",
			},
			expectType: &OpenAIProvider{},
		},
		{
			name:        "openai without key",
			config:      Config{Type: ProviderTypeOpenAI},
			expectError: true,
		},
		{
			name: "anthropic provider",
			config: Config{
				Type:   ProviderTypeAnthropic,
				Model:  "claude-sonnet-4-5-20250929",
				APIKey: "test-key",
			},
			expectType: &AnthropicProvider{},
		},
		{
			name: "custom provider from fields",
			config: Config{
				Type:    ProviderTypeCustom,
				BaseURL: "https://ai.company-internal.com/v1/chat",
				APIKey:  "test-key",
			},
			expectType: &SSEProvider{},
		},
		{
			name:       "custom provider with shared client",
			config:     Config{Type: ProviderTypeCustom, SSE: sse.NewClient()},
			expectType: &SSEProvider{},
		},
		{
			name:        "custom provider without endpoint",
			config:      Config{Type: ProviderTypeCustom},
			expectError: true,
		},
		{
			name:        "unknown provider type",
			config:      Config{Type: ProviderType("unknown")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.expectType, p)

			var _ model.Provider = p
		})
	}
}

var (
	_ plugin.Completer = (*OpenAIProvider)(nil)
	_ plugin.Completer = (*AnthropicProvider)(nil)
	_ plugin.Completer = (*OllamaProvider)(nil)
	_ plugin.Completer = (*SSEProvider)(nil)
	_ plugin.Completer = Completer{}
)

func TestMapModelType(t *testing.T) {
	tests := map[string]ProviderType{
		"openai":    ProviderTypeOpenAI,
		"OpenAI":    ProviderTypeOpenAI,
		"claude":    ProviderTypeAnthropic,
		"anthropic": ProviderTypeAnthropic,
		"ollama":    ProviderTypeOllama,
		"custom":    ProviderTypeCustom,
		"":          ProviderTypeCustom,
		"gemini":    ProviderType("gemini"),
	}
	for in, want := range tests {
		assert.Equal(t, want, MapModelType(in), in)
	}
}

func TestOpenAIBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1", openAIBaseURL("https://api.openai.com/v1/chat/completions"))
	assert.Equal(t, "https://api.openai.com/v1", openAIBaseURL("https://api.openai.com/v1/"))
	assert.Equal(t, "", openAIBaseURL(""))
}

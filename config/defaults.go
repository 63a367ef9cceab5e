package config

import (
	"time"

	"lovebug/security"
)

const (
	DefaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	DefaultModelType = "openai"
	DefaultModel     = "gpt-4o-mini"
)

func defaultConfig() *Config {
	return &Config{
		DataDirectory:     GetDefaultDataDir(),
		ModelType:         DefaultModelType,
		Endpoint:          DefaultEndpoint,
		Model:             DefaultModel,
		Timeout:           30 * time.Second,
		MaxInputLength:    4000,
		MaxResponseLength: 10000,
		RateLimit:         30,
		RateWindow:        60 * time.Second,
		StorageBackend:    "sqlite",
		AllowedOrigins:    security.DefaultAllowedOrigins,
		CacheTTL:          5 * time.Minute,
		Department:        "여신기획부",
	}
}

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/lovebug",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		API: APIConfig{
			ModelType:      DefaultModelType,
			Endpoint:       DefaultEndpoint,
			Model:          DefaultModel,
			TimeoutSeconds: 30,
			MaxRetries:     2,
		},
		Limits: LimitsConfig{
			MaxInputLength:    4000,
			MaxResponseLength: 10000,
			RateLimit:         30,
			RateWindowSeconds: 60,
		},
		Storage:  StorageConfig{Backend: "sqlite"},
		Security: SecurityConfig{CredentialStorage: string(SecurityPlainText)},
		Plugins:  PluginsConfig{CacheTTLSeconds: 300, Department: "여신기획부"},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Lovebug System Configuration
# Location: ~/.config/lovebug/settings.toml
# This file uses TOML format: https://toml.io

# Directory where plugin state, credentials and user config are stored
data_directory = "~/.local/share/lovebug"
`
}

func GenerateUserConfigTemplate() string {
	return `# Lovebug User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[api]
# openai, claude, ollama or custom (any endpoint speaking text/event-stream)
model_type = "openai"
endpoint = "https://api.openai.com/v1/chat/completions"
model = "gpt-4o-mini"
timeout_seconds = 30
# Retries for connection failures and 5xx before any data is streamed
max_retries = 2

[limits]
max_input_length = 4000
max_response_length = 10000
rate_limit = 30
rate_window_seconds = 60

[storage]
# sqlite, toml or memory
backend = "sqlite"

[security]
# plaintext, keyring or encrypted (needs LOVEBUG_ENCRYPTION_KEY)
credential_storage = "plaintext"

[plugins]
# Directory with *.lua plugin scripts (optional)
# script_directory = "~/.config/lovebug/plugins"
cache_ttl_seconds = 300
department = "여신기획부"

# default_system_prompt = "You are a helpful assistant."
`
}

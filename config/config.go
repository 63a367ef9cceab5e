package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"lovebug/security"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type APIConfig struct {
	ModelType      string `toml:"model_type"`
	Endpoint       string `toml:"endpoint"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

type LimitsConfig struct {
	MaxInputLength    int `toml:"max_input_length"`
	MaxResponseLength int `toml:"max_response_length"`
	RateLimit         int `toml:"rate_limit"`
	RateWindowSeconds int `toml:"rate_window_seconds"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
}

type SecurityConfig struct {
	CredentialStorage string   `toml:"credential_storage"`
	AllowedOrigins    []string `toml:"allowed_origins,omitempty"`
}

type PluginsConfig struct {
	ScriptDirectory string `toml:"script_directory,omitempty"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	Department      string `toml:"department,omitempty"`
}

type UserConfig struct {
	API                 APIConfig      `toml:"api"`
	Limits              LimitsConfig   `toml:"limits"`
	Storage             StorageConfig  `toml:"storage"`
	Security            SecurityConfig `toml:"security"`
	Plugins             PluginsConfig  `toml:"plugins"`
	DefaultSystemPrompt string         `toml:"default_system_prompt,omitempty"`
}

type Config struct {
	DataDirectory       string
	ModelType           string
	Endpoint            string
	Model               string
	Timeout             time.Duration
	MaxRetries          int
	MaxInputLength      int
	MaxResponseLength   int
	RateLimit           int
	RateWindow          time.Duration
	StorageBackend      string
	AllowedOrigins      []string
	ScriptDirectory     string
	CacheTTL            time.Duration
	Department          string
	DefaultSystemPrompt string

	CredentialStore *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// APIKey returns the stored API key, falling back to the environment.
func (c *Config) APIKey() string {
	if key := os.Getenv("LOVEBUG_API_KEY"); key != "" {
		return key
	}
	if c.CredentialStore != nil {
		if key := c.CredentialStore.Get(CredentialAPIKey); key != "" {
			return key
		}
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.ModelType == "openai" {
		return key
	}
	return os.Getenv("VITE_OPENAI_API_KEY")
}

// SigningSecret returns the request-signing secret, if any.
func (c *Config) SigningSecret() string {
	if s := os.Getenv("LOVEBUG_SIGNING_SECRET"); s != "" {
		return s
	}
	if c.CredentialStore != nil {
		return c.CredentialStore.Get(CredentialSigningSecret)
	}
	return ""
}

func (c *Config) applyUserConfig(u *UserConfig) {
	c.ModelType = u.API.ModelType
	c.Endpoint = u.API.Endpoint
	c.Model = u.API.Model
	if u.API.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(u.API.TimeoutSeconds) * time.Second
	}
	c.MaxRetries = u.API.MaxRetries
	if u.Limits.MaxInputLength > 0 {
		c.MaxInputLength = u.Limits.MaxInputLength
	}
	if u.Limits.MaxResponseLength > 0 {
		c.MaxResponseLength = u.Limits.MaxResponseLength
	}
	if u.Limits.RateLimit > 0 {
		c.RateLimit = u.Limits.RateLimit
	}
	if u.Limits.RateWindowSeconds > 0 {
		c.RateWindow = time.Duration(u.Limits.RateWindowSeconds) * time.Second
	}
	if u.Storage.Backend != "" {
		c.StorageBackend = u.Storage.Backend
	}
	if len(u.Security.AllowedOrigins) > 0 {
		c.AllowedOrigins = u.Security.AllowedOrigins
	}
	c.ScriptDirectory = u.Plugins.ScriptDirectory
	if u.Plugins.CacheTTLSeconds > 0 {
		c.CacheTTL = time.Duration(u.Plugins.CacheTTLSeconds) * time.Second
	}
	if u.Plugins.Department != "" {
		c.Department = u.Plugins.Department
	}
	c.DefaultSystemPrompt = u.DefaultSystemPrompt
}

func (c *Config) applyEnvOverrides() {
	if endpoint := os.Getenv("LOVEBUG_ENDPOINT"); endpoint != "" {
		c.Endpoint = endpoint
	}
	if model := os.Getenv("LOVEBUG_MODEL"); model != "" {
		c.Model = model
	}
	if modelType := os.Getenv("LOVEBUG_MODEL_TYPE"); modelType != "" {
		c.ModelType = modelType
	}
	if dataDir := os.Getenv("LOVEBUG_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

// LoadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv() {
	if !FileExists(".env") {
		return
	}
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not read .env: %v\n", err)
	}
}

func CheckDebug() bool {
	debug := os.Getenv("LOVEBUG_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: prompts and endpoints end up in here
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	Debug = true
	DebugLog.Printf("=== Debug logging started (LOVEBUG_DEBUG=%s) ===", os.Getenv("LOVEBUG_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// DebugLogger returns DebugLog, or a stderr logger when debug logging is off.
// Libraries that want a *log.Logger get this; stdout may be a protocol
// channel.
func DebugLogger() *log.Logger {
	if DebugLog != nil {
		return DebugLog
	}
	return log.New(os.Stderr, "lovebug: ", log.LstdFlags)
}

// SecureLog writes an audit line to the debug log with sensitive fields
// masked. It is a no-op unless debug logging is enabled.
func SecureLog(level, message string, fields map[string]any) {
	if !Debug || DebugLog == nil {
		return
	}

	masked := security.MaskSensitive(fields, security.SensitiveFields)
	keys := make([]string, 0, len(masked))
	for k := range masked {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, masked[k])
	}
	DebugLog.Output(2, fmt.Sprintf("[%s] %s%s", strings.ToUpper(level), message, b.String()))
}

func Load() (*Config, error) {
	cfg := defaultConfig()

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory
	if dataDir := os.Getenv("LOVEBUG_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	dataDir := cfg.DataDir()
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	store, err := NewCredentialStore(SecurityMethod(userCfg.Security.CredentialStorage))
	if err != nil {
		return nil, err
	}
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	return cfg, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"lovebug/bridge"
	"lovebug/config"
	"lovebug/model"
	"lovebug/plugin"
	"lovebug/provider"
	"lovebug/sse"
	"lovebug/storage"
)

// app wires the configured backend, the plugin registry and its state store.
// Every command builds one.
type app struct {
	cfg      *config.Config
	client   *sse.Client
	tracker  *model.ConnectionTracker
	registry *plugin.Registry
	cache    *plugin.ResultCache
	store    storage.KVStore

	mu       sync.RWMutex
	provider model.Provider
}

func newApp(ctx context.Context) (*app, error) {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	config.InitDebugLog(cfg.DataDir())

	if flagStorage != "" {
		cfg.StorageBackend = string(flagStorage)
	}
	store, err := openStore(cfg.StorageBackend, cfg.DataDir())
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		tracker: &model.ConnectionTracker{},
		store:   store,
		cache:   plugin.NewResultCache(cfg.CacheTTL),
	}
	a.client = sse.NewClient(sse.WithStatusReporter(a.tracker.Report))
	a.client.SetConfig(provider.SSEConfig(cfg))

	// A broken backend config still lets the plugin and config commands
	// run; chat and plugin execution report it instead.
	if p, err := provider.FromConfig(cfg, a.client); err != nil {
		config.SecureLog("warn", "provider unavailable", map[string]any{
			"model_type": cfg.ModelType,
			"error":      err.Error(),
		})
	} else {
		a.provider = p
	}

	a.registry = a.buildRegistry(ctx)
	return a, nil
}

func openStore(backend, dataDir string) (storage.KVStore, error) {
	switch backend {
	case "", "sqlite":
		s, err := storage.NewSQLiteStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin state: %w", err)
		}
		return s, nil
	case "toml", "file":
		return storage.NewFileStore(dataDir), nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}

func (a *app) buildRegistry(ctx context.Context) *plugin.Registry {
	r := plugin.NewRegistry(a.store)

	plugins := plugin.Builtins(plugin.NewPromptExecutor(a))
	plugins = append(plugins, plugin.NHPlugins(a, a.cfg.Department)...)

	dir := config.GetPluginScriptDir()
	if a.cfg.ScriptDirectory != "" {
		dir = config.ExpandPath(a.cfg.ScriptDirectory)
	}
	scripts, err := plugin.LoadLuaPlugins(dir, a)
	if err != nil {
		config.SecureLog("warn", "some plugin scripts failed to load", map[string]any{
			"dir":   dir,
			"error": err.Error(),
		})
	}
	plugins = append(plugins, scripts...)

	for _, p := range a.cache.Apply(plugins) {
		r.Register(p)
	}
	r.LoadState(ctx)
	return r
}

func (a *app) Close() {
	a.cache.Close()
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil && config.Debug {
			config.DebugLog.Printf("[App] closing store: %v", err)
		}
	}
}

func (a *app) Provider() model.Provider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.provider
}

// Complete sends plugin prompts to whichever provider is current, so
// settings pushed by the extension apply to plugins too.
func (a *app) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	p := a.Provider()
	if p == nil {
		return "", bridge.ErrNoProvider
	}
	return provider.Completer{Provider: p}.Complete(ctx, systemPrompt, prompt)
}

// usesSSE reports whether the current backend streams through a.client.
func (a *app) usesSSE() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return provider.MapModelType(a.cfg.ModelType) == provider.ProviderTypeCustom
}

// CheckConnection probes the current backend. The custom endpoint is
// probed by the SSE client so its circuit breaker sees the result.
func (a *app) CheckConnection(ctx context.Context) bool {
	if a.usesSSE() {
		return a.client.CheckConnection(ctx)
	}
	p := a.Provider()
	if p == nil {
		return false
	}
	return p.Ping(ctx) == nil
}

func (a *app) systemPrompt() string {
	if a.cfg.DefaultSystemPrompt != "" {
		return a.cfg.DefaultSystemPrompt
	}
	return plugin.DefaultSystemPrompt
}

// dispatcher builds the extension request handler over this app.
func (a *app) dispatcher() *bridge.Dispatcher {
	d := bridge.NewDispatcher(a.registry, a.Provider())
	d.Tracker = a.tracker
	d.AllowedOrigins = a.cfg.AllowedOrigins
	d.Sanitize = true
	d.Health = a
	d.Reconfigure = func(_ context.Context, s bridge.Settings) (model.Provider, error) {
		return a.reconfigure(s)
	}
	return d
}

// reconfigure persists s and rebuilds the provider from it. Blank fields
// keep their current values.
func (a *app) reconfigure(s bridge.Settings) (model.Provider, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dataDir := a.cfg.DataDir()

	fields := []struct {
		name  string
		value string
		dst   *string
	}{
		{"model_type", s.ModelType, &a.cfg.ModelType},
		{"endpoint", s.Endpoint, &a.cfg.Endpoint},
		{"model", s.Model, &a.cfg.Model},
	}
	for _, f := range fields {
		v := strings.TrimSpace(f.value)
		if v == "" {
			continue
		}
		if err := config.UpdateAPISetting(dataDir, f.name, v); err != nil {
			return nil, err
		}
		*f.dst = v
	}

	if key := strings.TrimSpace(s.APIKey); key != "" {
		if err := a.saveAPIKey(key); err != nil {
			return nil, err
		}
	}

	a.client.SetConfig(provider.SSEConfig(a.cfg))
	p, err := provider.FromConfig(a.cfg, a.client)
	if err != nil {
		return nil, err
	}
	a.provider = p
	return p, nil
}

func (a *app) saveAPIKey(key string) error {
	store := a.cfg.CredentialStore
	if store == nil {
		return errors.New("credential store unavailable")
	}
	if err := store.Set(config.CredentialAPIKey, key); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}
	if err := store.Save(a.cfg.DataDir()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"

	"lovebug/config"
	"lovebug/storage"
)

// Keys the registry persists its state under.
const (
	StatesKey  = "plugin_states"
	PromptsKey = "plugin_prompts"
)

// Registry owns the registered plugins. Plugins handed out are copies; all
// mutation goes through the registry so it can persist the change.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*Plugin
	order   []string
	store   storage.KVStore

	// saveMu orders snapshots so the last write always holds the newest state.
	saveMu sync.Mutex
}

// NewRegistry returns an empty registry that persists to store. A nil store
// keeps state in memory only.
func NewRegistry(store storage.KVStore) *Registry {
	return &Registry{
		plugins: make(map[string]*Plugin),
		store:   store,
	}
}

// Register inserts p, replacing any plugin with the same id in place.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[p.ID]; !exists {
		r.order = append(r.order, p.ID)
	}
	r.plugins[p.ID] = &p
}

func (r *Registry) Get(id string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// All returns every plugin in registration order.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) Plugin {
		return *r.plugins[id]
	})
}

func (r *Registry) Enabled() []Plugin {
	return lo.Filter(r.All(), func(p Plugin, _ int) bool {
		return p.Enabled
	})
}

// Find fuzzy-matches query against plugin ids and names, best match first.
// An empty query returns every plugin.
func (r *Registry) Find(query string) []Plugin {
	all := r.All()
	if strings.TrimSpace(query) == "" {
		return all
	}

	targets := lo.Map(all, func(p Plugin, _ int) string {
		return p.ID + " " + p.Name
	})
	matches := fuzzy.Find(query, targets)

	found := make([]Plugin, len(matches))
	for i, match := range matches {
		found[i] = all[match.Index]
	}
	return found
}

// Toggle flips a plugin's enabled flag and persists the new state.
func (r *Registry) Toggle(ctx context.Context, id string) (*Plugin, bool) {
	return r.update(ctx, id, func(p *Plugin) {
		p.Enabled = !p.Enabled
	})
}

func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) (*Plugin, bool) {
	return r.update(ctx, id, func(p *Plugin) {
		p.Enabled = enabled
	})
}

// SetCustomPrompt overrides the plugin's default prompt. A blank prompt
// removes the override.
func (r *Registry) SetCustomPrompt(ctx context.Context, id, prompt string) (*Plugin, bool) {
	return r.update(ctx, id, func(p *Plugin) {
		if strings.TrimSpace(prompt) == "" {
			p.CustomPrompt = ""
			return
		}
		p.CustomPrompt = prompt
	})
}

func (r *Registry) ResetPrompt(ctx context.Context, id string) (*Plugin, bool) {
	return r.update(ctx, id, func(p *Plugin) {
		p.CustomPrompt = ""
	})
}

// EffectivePrompt returns the prompt the plugin would execute with.
func (r *Registry) EffectivePrompt(id string) (string, bool) {
	p, ok := r.Get(id)
	if !ok {
		return "", false
	}
	return p.Prompt(), true
}

func (r *Registry) update(ctx context.Context, id string, mutate func(*Plugin)) (*Plugin, bool) {
	r.mu.Lock()
	p, ok := r.plugins[id]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	mutate(p)
	cp := *p
	r.mu.Unlock()

	if err := r.SaveState(ctx); err != nil {
		config.SecureLog("error", "failed to persist plugin state", map[string]any{
			"plugin": id,
			"error":  err.Error(),
		})
	}
	return &cp, true
}

// Execute runs the plugin with the given id. It never panics and never
// returns a Go error: every failure is a failed Result.
func (r *Registry) Execute(ctx context.Context, id, text string) (res Result) {
	p, ok := r.Get(id)
	if !ok {
		return Fail(KindNotFound, NotFound(id).Message)
	}
	if !p.Enabled {
		return Fail(KindDisabled, fmt.Sprintf("Plugin %s is disabled", id))
	}
	if p.Executor == nil {
		return Fail(KindExecution, fmt.Sprintf("Plugin %s has no executor", id))
	}

	defer func() {
		if rec := recover(); rec != nil {
			if config.Debug {
				config.DebugLog.Printf("[Plugin] %s panicked: %v", id, rec)
			}
			if err, isErr := rec.(error); isErr {
				res = Failed(err)
				return
			}
			res = Fail(KindExecution, "Unknown error")
		}
	}()

	res = p.Executor.Execute(ctx, p, text)
	if !res.Success() && res.Kind() == KindNone {
		res = Fail(KindExecution, res.Message())
	}
	return res
}

// LoadState applies persisted enabled flags and custom prompts. Missing or
// unreadable entries leave the current state untouched; ids that are no
// longer registered are ignored.
func (r *Registry) LoadState(ctx context.Context) {
	if r.store == nil {
		return
	}

	var states map[string]bool
	r.loadKey(ctx, StatesKey, &states)
	var prompts map[string]string
	r.loadKey(ctx, PromptsKey, &prompts)

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, enabled := range states {
		if p, ok := r.plugins[id]; ok {
			p.Enabled = enabled
		}
	}
	for id, prompt := range prompts {
		if p, ok := r.plugins[id]; ok {
			p.CustomPrompt = prompt
		}
	}
}

func (r *Registry) loadKey(ctx context.Context, key string, dst any) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			config.SecureLog("error", "failed to read plugin state", map[string]any{
				"key":   key,
				"error": err.Error(),
			})
		}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		config.SecureLog("warn", "ignoring corrupt plugin state", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// SaveState writes the full enabled and prompt maps. Both are rebuilt from
// the current registry on every call.
func (r *Registry) SaveState(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	r.mu.RLock()
	states := make(map[string]bool, len(r.plugins))
	prompts := make(map[string]string)
	for id, p := range r.plugins {
		states[id] = p.Enabled
		if p.CustomPrompt != "" {
			prompts[id] = p.CustomPrompt
		}
	}
	r.mu.RUnlock()

	statesJSON, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("failed to encode plugin states: %w", err)
	}
	promptsJSON, err := json.Marshal(prompts)
	if err != nil {
		return fmt.Errorf("failed to encode plugin prompts: %w", err)
	}

	if err := r.store.Set(ctx, StatesKey, statesJSON); err != nil {
		return fmt.Errorf("failed to save plugin states: %w", err)
	}
	if err := r.store.Set(ctx, PromptsKey, promptsJSON); err != nil {
		return fmt.Errorf("failed to save plugin prompts: %w", err)
	}
	return nil
}

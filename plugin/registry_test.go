package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovebug/storage"
)

func echoPlugin(id string) Plugin {
	return Plugin{
		ID:            id,
		Name:          id,
		Category:      CategoryText,
		DefaultPrompt: "echo {text}",
		Enabled:       true,
		Executor: ExecutorFunc(func(_ context.Context, p *Plugin, text string) Result {
			return Ok(RenderTemplate(p.Prompt(), text))
		}),
	}
}

func newTestRegistry(store storage.KVStore, ids ...string) *Registry {
	r := NewRegistry(store)
	for _, id := range ids {
		r.Register(echoPlugin(id))
	}
	return r
}

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		text     string
		want     string
	}{
		{"single placeholder", "Summarize: {text}", "hello", "Summarize: hello"},
		{"every placeholder", "{text} / {text}", "x", "x / x"},
		{"no placeholder appends", "요약해 주세요.", "본문", "요약해 주세요.\n\n[TEXT]:\n본문"},
		{"empty text", "[{text}]", "", "[]"},
		{"text containing placeholder is not expanded again", "<{text}>", "{text}", "<{text}>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderTemplate(tt.template, tt.text))
		})
	}
}

func TestRegisterKeepsOrderAndReplacesInPlace(t *testing.T) {
	r := newTestRegistry(nil, "a", "b", "c")

	replacement := echoPlugin("b")
	replacement.Name = "B2"
	r.Register(replacement)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, "B2", all[1].Name)
}

func TestGetReturnsCopy(t *testing.T) {
	r := newTestRegistry(nil, "a")

	p, ok := r.Get("a")
	require.True(t, ok)
	p.Enabled = false
	p.CustomPrompt = "mutated"

	again, _ := r.Get("a")
	assert.True(t, again.Enabled)
	assert.Empty(t, again.CustomPrompt)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestEnabledAndToggle(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := newTestRegistry(store, "a", "b")

	p, ok := r.Toggle(ctx, "a")
	require.True(t, ok)
	assert.False(t, p.Enabled)

	enabled := r.Enabled()
	require.Len(t, enabled, 1)
	assert.Equal(t, "b", enabled[0].ID)

	raw, err := store.Get(ctx, StatesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":false,"b":true}`, string(raw))

	p, ok = r.Toggle(ctx, "a")
	require.True(t, ok)
	assert.True(t, p.Enabled)

	p, ok = r.Toggle(ctx, "missing")
	assert.False(t, ok)
	assert.Nil(t, p)
}

func TestToggleSurvivesStoreFailure(t *testing.T) {
	r := newTestRegistry(brokenStore{}, "a")

	p, ok := r.Toggle(context.Background(), "a")
	require.True(t, ok)
	assert.False(t, p.Enabled)
	assert.Error(t, r.SaveState(context.Background()))
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(nil, "echo")

	invoked := false
	r.Register(Plugin{ID: "off", Enabled: false, Executor: ExecutorFunc(func(context.Context, *Plugin, string) Result {
		invoked = true
		return Ok("should not run")
	})})
	r.Register(Plugin{ID: "fails", Enabled: true, Executor: ExecutorFunc(func(context.Context, *Plugin, string) Result {
		return Failed(errors.New("backend down"))
	})})
	r.Register(Plugin{ID: "panics-error", Enabled: true, Executor: ExecutorFunc(func(context.Context, *Plugin, string) Result {
		panic(errors.New("boom"))
	})})
	r.Register(Plugin{ID: "panics-value", Enabled: true, Executor: ExecutorFunc(func(context.Context, *Plugin, string) Result {
		panic(42)
	})})

	tests := []struct {
		id      string
		ok      bool
		data    string
		kind    Kind
		message string
	}{
		{id: "echo", ok: true, data: "echo hi"},
		{id: "nope", kind: KindNotFound, message: "Plugin nope not found"},
		{id: "off", kind: KindDisabled, message: "Plugin off is disabled"},
		{id: "fails", kind: KindExecution, message: "backend down"},
		{id: "panics-error", kind: KindExecution, message: "boom"},
		{id: "panics-value", kind: KindExecution, message: "Unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			res := r.Execute(ctx, tt.id, "hi")
			assert.Equal(t, tt.ok, res.Success())
			assert.Equal(t, tt.data, res.Data())
			assert.Equal(t, tt.kind, res.Kind())
			assert.Equal(t, tt.message, res.Message())
			if !tt.ok {
				require.Error(t, res.Err())
				assert.EqualError(t, res.Err(), tt.message)
			}
		})
	}
	assert.False(t, invoked, "a disabled plugin must not be executed")
}

func TestResultErrMatchesKind(t *testing.T) {
	r := newTestRegistry(nil)
	res := r.Execute(context.Background(), "x", "")
	assert.ErrorIs(t, res.Err(), ErrNotFound)
	assert.NotErrorIs(t, res.Err(), ErrDisabled)
	assert.NoError(t, Ok("fine").Err())
}

func TestResultJSON(t *testing.T) {
	ok, err := Ok("done").MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":"done"}`, string(ok))

	failed, err := Fail(KindDisabled, "Plugin x is disabled").MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"Plugin x is disabled","kind":"Disabled"}`, string(failed))
}

func TestCustomPrompt(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	r := newTestRegistry(store, "echo")

	_, ok := r.SetCustomPrompt(ctx, "echo", "shout {text}!")
	require.True(t, ok)

	prompt, _ := r.EffectivePrompt("echo")
	assert.Equal(t, "shout {text}!", prompt)
	assert.Equal(t, "shout hi!", r.Execute(ctx, "echo", "hi").Data())

	raw, err := store.Get(ctx, PromptsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"shout {text}!"}`, string(raw))

	_, ok = r.ResetPrompt(ctx, "echo")
	require.True(t, ok)
	prompt, _ = r.EffectivePrompt("echo")
	assert.Equal(t, "echo {text}", prompt)

	raw, err = store.Get(ctx, PromptsKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))

	_, ok = r.SetCustomPrompt(ctx, "echo", "   ")
	require.True(t, ok)
	p, _ := r.Get("echo")
	assert.Empty(t, p.CustomPrompt)

	_, ok = r.SetCustomPrompt(ctx, "missing", "x")
	assert.False(t, ok)
	_, ok = r.EffectivePrompt("missing")
	assert.False(t, ok)
}

func TestStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	first := newTestRegistry(store, "a", "b", "c")
	first.SetEnabled(ctx, "b", false)
	first.SetCustomPrompt(ctx, "c", "custom {text}")
	require.NoError(t, first.SaveState(ctx))

	second := newTestRegistry(store, "a", "b", "c")
	second.LoadState(ctx)

	assert.Equal(t, persisted(first), persisted(second))
	assert.Equal(t, map[string]state{
		"a": {enabled: true},
		"b": {enabled: false},
		"c": {enabled: true, prompt: "custom {text}"},
	}, persisted(second))
}

type state struct {
	enabled bool
	prompt  string
}

func persisted(r *Registry) map[string]state {
	out := make(map[string]state)
	for _, p := range r.All() {
		out[p.ID] = state{enabled: p.Enabled, prompt: p.CustomPrompt}
	}
	return out
}

func TestLoadStateTolerance(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		r := newTestRegistry(storage.NewMemoryStore(), "a")
		r.LoadState(ctx)
		p, _ := r.Get("a")
		assert.True(t, p.Enabled)
	})

	t.Run("corrupt", func(t *testing.T) {
		store := storage.NewMemoryStore()
		require.NoError(t, store.Set(ctx, StatesKey, []byte(`{not json`)))
		require.NoError(t, store.Set(ctx, PromptsKey, []byte(`{"a":"kept {text}"}`)))

		r := newTestRegistry(store, "a")
		r.LoadState(ctx)
		p, _ := r.Get("a")
		assert.True(t, p.Enabled)
		assert.Equal(t, "kept {text}", p.CustomPrompt)
	})

	t.Run("unreadable", func(t *testing.T) {
		r := newTestRegistry(brokenStore{}, "a")
		r.LoadState(ctx)
		p, _ := r.Get("a")
		assert.True(t, p.Enabled)
	})

	t.Run("unknown ids ignored", func(t *testing.T) {
		store := storage.NewMemoryStore()
		require.NoError(t, store.Set(ctx, StatesKey, []byte(`{"gone":false,"a":false}`)))

		r := newTestRegistry(store, "a")
		r.LoadState(ctx)
		p, _ := r.Get("a")
		assert.False(t, p.Enabled)
		_, ok := r.Get("gone")
		assert.False(t, ok)
	})
}

func TestSaveStateWritesFullSnapshot(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, StatesKey, []byte(`{"stale":true}`)))

	r := newTestRegistry(store, "a", "b")
	require.NoError(t, r.SaveState(ctx))

	raw, err := store.Get(ctx, StatesKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":true,"b":true}`, string(raw))
}

func TestFind(t *testing.T) {
	r := NewRegistry(nil)
	for _, p := range Builtins(nil) {
		r.Register(p)
	}

	found := r.Find("trans")
	require.NotEmpty(t, found)
	assert.Equal(t, "translate", found[0].ID)

	assert.Len(t, r.Find(""), 4)
	assert.Empty(t, r.Find("zzzz"))
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(storage.NewMemoryStore(), "a", "b")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			r.Toggle(ctx, "a")
		}()
		go func(i int) {
			defer wg.Done()
			r.SetCustomPrompt(ctx, "b", fmt.Sprintf("v%d {text}", i))
		}(i)
		go func() {
			defer wg.Done()
			r.Execute(ctx, "b", "x")
			r.All()
		}()
	}
	wg.Wait()

	// 20 toggles return "a" to its initial state.
	p, _ := r.Get("a")
	assert.True(t, p.Enabled)
}

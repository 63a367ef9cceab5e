package plugin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

const shoutScript = `
return {
  id = "shout",
  name = "Shout",
  icon = "📣",
  prompt = "Make it loud: {text}",
  execute = function(text, prompt)
    local answer = complete(render(prompt, text))
    return string.upper(answer)
  end,
}
`

func TestLoadLuaPlugins(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "shout.lua", shoutScript)
	writeScript(t, dir, "prompt_only.lua", `return { id = "haiku", prompt = "Write a haiku about {text}", enabled = false }`)
	writeScript(t, dir, "notes.txt", "ignored")

	c := &fakeCompleter{reply: "hello there"}
	plugins, err := LoadLuaPlugins(dir, c)
	require.NoError(t, err)
	require.Len(t, plugins, 2)

	byID := map[string]Plugin{}
	for _, p := range plugins {
		byID[p.ID] = p
	}

	shout := byID["shout"]
	assert.Equal(t, "Shout", shout.Name)
	assert.Equal(t, "📣", shout.Icon)
	assert.Equal(t, CategoryText, shout.Category)
	assert.True(t, shout.Enabled)

	haiku := byID["haiku"]
	assert.Equal(t, "haiku", haiku.Name)
	assert.Equal(t, defaultScriptIcon, haiku.Icon)
	assert.False(t, haiku.Enabled)
	assert.IsType(t, &PromptExecutor{}, haiku.Executor)
}

func TestLuaExecute(t *testing.T) {
	dir := t.TempDir()
	c := &fakeCompleter{reply: "hello there"}
	p, err := LoadLuaPlugin(writeScript(t, dir, "shout.lua", shoutScript), c)
	require.NoError(t, err)

	r := NewRegistry(nil)
	r.Register(p)

	res := r.Execute(context.Background(), "shout", "greeting")
	require.True(t, res.Success(), res.Message())
	assert.Equal(t, "HELLO THERE", res.Data())
	assert.Equal(t, "Make it loud: greeting", c.Calls()[0].prompt)
	assert.Equal(t, DefaultSystemPrompt, c.Calls()[0].system)
}

func TestLuaExecuteFailures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{
			name:   "raised error",
			script: `return { id = "x", execute = function(text) error("cannot handle " .. text) end }`,
			want:   "cannot handle input",
		},
		{
			name:   "nil and message",
			script: `return { id = "x", execute = function(text) return nil, "no luck" end }`,
			want:   "no luck",
		},
		{
			name:   "empty result",
			script: `return { id = "x", execute = function(text) return "" end }`,
			want:   "API로부터 응답을 받지 못했습니다.",
		},
		{
			name:   "io is unavailable",
			script: `return { id = "x", execute = function(text) return io.open("/etc/passwd"):read("*a") end }`,
		},
		{
			name:   "os is unavailable",
			script: `return { id = "x", execute = function(text) return os.getenv("HOME") end }`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LoadLuaPlugin(writeScript(t, t.TempDir(), "x.lua", tt.script), &fakeCompleter{})
			require.NoError(t, err)

			res := p.Executor.Execute(context.Background(), &p, "input")
			assert.False(t, res.Success())
			assert.Equal(t, KindExecution, res.Kind())
			if tt.want != "" {
				assert.Equal(t, tt.want, res.Message())
			}
		})
	}
}

func TestLuaCompleteError(t *testing.T) {
	script := `return { id = "x", execute = function(text) return complete(text) end }`
	p, err := LoadLuaPlugin(writeScript(t, t.TempDir(), "x.lua", script), &fakeCompleter{err: assert.AnError})
	require.NoError(t, err)

	res := p.Executor.Execute(context.Background(), &p, "input")
	assert.False(t, res.Success())
	assert.True(t, strings.Contains(res.Message(), assert.AnError.Error()), res.Message())
}

func TestLoadLuaPluginErrors(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "syntax.lua", `return {`)
	writeScript(t, dir, "noid.lua", `return { name = "anonymous", prompt = "x" }`)
	writeScript(t, dir, "notable.lua", `return 42`)
	writeScript(t, dir, "noexec.lua", `return { id = "empty" }`)
	writeScript(t, dir, "good.lua", `return { id = "good", prompt = "ok {text}" }`)

	plugins, err := LoadLuaPlugins(dir, &fakeCompleter{})
	require.Error(t, err)
	require.Len(t, plugins, 1)
	assert.Equal(t, "good", plugins[0].ID)

	for _, name := range []string{"syntax.lua", "noid.lua", "notable.lua", "noexec.lua"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestLoadLuaPluginsMissingDir(t *testing.T) {
	plugins, err := LoadLuaPlugins(filepath.Join(t.TempDir(), "absent"), nil)
	assert.NoError(t, err)
	assert.Empty(t, plugins)
}

func TestLuaExecuteCanceled(t *testing.T) {
	script := `return { id = "spin", execute = function(text) while true do end end }`
	p, err := LoadLuaPlugin(writeScript(t, t.TempDir(), "spin.lua", script), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Executor.Execute(ctx, &p, "x")
	assert.False(t, res.Success())
}

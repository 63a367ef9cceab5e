package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovebug/plugin"
	"lovebug/storage"
)

func TestStorageBackendFlag(t *testing.T) {
	var b storageBackend
	require.NoError(t, b.Set(" SQLite "))
	assert.Equal(t, "sqlite", b.String())

	require.NoError(t, b.Set("memory"))
	assert.Equal(t, "memory", b.String())

	err := b.Set("redis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite, toml, memory")
	assert.Equal(t, "memory", b.String(), "a rejected value leaves the flag unchanged")
	assert.Equal(t, "backend", b.Type())
}

func TestPluginInput(t *testing.T) {
	got, err := pluginInput([]string{"hello", "world"}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	got, err = pluginInput(nil, strings.NewReader("line one\nline two\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", got)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	s, err := openStore("memory", dir)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, s)

	s, err = openStore("toml", dir)
	require.NoError(t, err)
	assert.IsType(t, &storage.FileStore{}, s)

	s, err = openStore("sqlite", dir)
	require.NoError(t, err)
	require.IsType(t, &storage.SQLiteStore{}, s)
	require.NoError(t, s.(*storage.SQLiteStore).Close())

	_, err = openStore("redis", dir)
	assert.Error(t, err)
}

func TestPluginRows(t *testing.T) {
	rows := pluginRows([]plugin.Plugin{
		{ID: "summarize", Name: "요약하기", Icon: "📝", Category: plugin.CategoryText, DefaultPrompt: "p", Enabled: true},
		{ID: "custom", Name: "Custom", Category: plugin.CategoryText, DefaultPrompt: "p", CustomPrompt: "c"},
		{ID: "script", Name: "Script", Category: plugin.CategoryCode},
	})

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"ID", "Name", "Category", "Enabled", "Prompt"}, rows[0])
	assert.Equal(t, []string{"summarize", "📝 요약하기", "text", "yes", "default"}, rows[1])
	assert.Equal(t, []string{"custom", "Custom", "text", "no", "custom"}, rows[2])
	assert.Equal(t, []string{"script", "Script", "code", "no", "-"}, rows[3])
}

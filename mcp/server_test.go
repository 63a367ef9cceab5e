package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lovebug/plugin"
)

func testRegistry() *plugin.Registry {
	r := plugin.NewRegistry(nil)
	r.Register(plugin.Plugin{
		ID:            "shout",
		Name:          "Shout",
		Description:   "Uppercase the text",
		DefaultPrompt: "SHOUT {text}",
		Enabled:       true,
		Executor: plugin.ExecutorFunc(func(_ context.Context, p *plugin.Plugin, text string) plugin.Result {
			return plugin.Ok(plugin.RenderTemplate(p.Prompt(), text))
		}),
	})
	r.Register(plugin.Plugin{
		ID:      "broken",
		Name:    "Broken",
		Enabled: true,
		Executor: plugin.ExecutorFunc(func(context.Context, *plugin.Plugin, string) plugin.Result {
			return plugin.Fail(plugin.KindExecution, "API로부터 응답을 받지 못했습니다.")
		}),
	})
	r.Register(plugin.Plugin{ID: "off", Name: "Off", Enabled: false})
	return r
}

func connect(t *testing.T, s *Server) *client.Client {
	t.Helper()
	ctx := context.Background()

	c, err := client.NewInProcessClient(s.MCPServer())
	require.NoError(t, err)
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() { c.Close() })

	_, err = c.Initialize(ctx, mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: mcptypes.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcptypes.Implementation{
				Name:    "lovebug-test",
				Version: "1.0.0",
			},
		},
	})
	require.NoError(t, err)
	return c
}

func toolNames(t *testing.T, c *client.Client) []string {
	t.Helper()
	res, err := c.ListTools(context.Background(), mcptypes.ListToolsRequest{})
	require.NoError(t, err)
	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcptypes.CallToolResult {
	t.Helper()
	res, err := c.CallTool(context.Background(), mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcptypes.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcptypes.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestServerListsEnabledPlugins(t *testing.T) {
	c := connect(t, NewServer(testRegistry(), "test"))
	assert.ElementsMatch(t, []string{"shout", "broken"}, toolNames(t, c))
}

func TestPluginTool(t *testing.T) {
	tool := pluginTool(plugin.Plugin{ID: "summarize", Name: "📝 요약하기", Description: "선택한 텍스트를 간단히 요약합니다"})
	assert.Equal(t, "summarize", tool.Name)
	assert.Equal(t, "📝 요약하기: 선택한 텍스트를 간단히 요약합니다", tool.Description)
	assert.Equal(t, []string{TextArgument}, tool.InputSchema.Required)

	tool = pluginTool(plugin.Plugin{ID: "bare", Name: "Bare"})
	assert.Equal(t, "Bare", tool.Description)
}

func TestCallTool(t *testing.T) {
	c := connect(t, NewServer(testRegistry(), "test"))

	res := callTool(t, c, "shout", map[string]any{"text": "hello"})
	assert.False(t, res.IsError)
	assert.Equal(t, "SHOUT hello", resultText(t, res))

	res = callTool(t, c, "broken", map[string]any{"text": "hello"})
	assert.True(t, res.IsError)
	assert.Equal(t, "API로부터 응답을 받지 못했습니다.", resultText(t, res))

	res = callTool(t, c, "shout", map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), TextArgument)
}

func TestSyncFollowsRegistry(t *testing.T) {
	reg := testRegistry()
	s := NewServer(reg, "test")
	c := connect(t, s)

	_, ok := reg.Toggle(context.Background(), "shout")
	require.True(t, ok)
	_, ok = reg.Toggle(context.Background(), "off")
	require.True(t, ok)

	// The published list is a snapshot until the next Sync.
	assert.ElementsMatch(t, []string{"shout", "broken"}, toolNames(t, c))
	res := callTool(t, c, "shout", map[string]any{"text": "x"})
	assert.True(t, res.IsError)
	assert.Equal(t, "Plugin shout is disabled", resultText(t, res))

	s.Sync()
	assert.ElementsMatch(t, []string{"broken", "off"}, toolNames(t, c))
}

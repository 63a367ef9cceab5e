package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"lovebug/bridge"
	"lovebug/config"
	"lovebug/mcp"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Run the browser extension's native-messaging host",
	Long: "Speak the native-messaging protocol on stdin and stdout. " +
		"Browsers start this command themselves; it is not meant to be run by hand.",
	// Browsers pass the extension origin (and on Windows a window handle)
	// as arguments.
	Args: cobra.ArbitraryArgs,
	RunE: runHost,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the enabled plugins as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	hostCmd.Flags().Int("concurrency", bridge.DefaultConcurrency, "Requests handled at once")
}

func runHost(cmd *cobra.Command, args []string) error {
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if config.Debug {
		config.DebugLog.Printf("[Host] started by %v", args)
	}

	host := bridge.NewHost(a.dispatcher())
	host.SetConcurrency(concurrency)
	return host.Serve(cmd.Context(), os.Stdin, os.Stdout)
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcp.NewServer(a.registry, cmd.Root().Version)
	return srv.Serve(cmd.Context(), os.Stdin, os.Stdout)
}

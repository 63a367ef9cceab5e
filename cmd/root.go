// Package cmd is the lovebug command line: the terminal chat, one-shot
// plugin runs, the extension's native-messaging host and the MCP server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// storageBackend is a pflag.Value restricted to the plugin state backends.
type storageBackend string

var storageBackends = []string{"sqlite", "toml", "memory"}

func (b *storageBackend) String() string { return string(*b) }
func (b *storageBackend) Type() string   { return "backend" }

func (b *storageBackend) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, allowed := range storageBackends {
		if v == allowed {
			*b = storageBackend(v)
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(storageBackends, ", "))
}

var _ pflag.Value = (*storageBackend)(nil)

var (
	flagStorage storageBackend
	flagDataDir string
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "lovebug",
	Short: "AI assistant with a plugin registry for selected text",
	Long: "Lovebug runs text plugins (summarize, translate, loan analysis and your own Lua scripts) " +
		"against an OpenAI-compatible, Anthropic or Ollama backend.\n\n" +
		"Without a subcommand it opens the terminal chat.",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagDebug {
			os.Setenv("LOVEBUG_DEBUG", "1")
		}
		if flagDataDir != "" {
			os.Setenv("LOVEBUG_DATA_DIR", flagDataDir)
		}
	},
	RunE: runChat,
}

func init() {
	rootCmd.PersistentFlags().Var(&flagStorage, "storage", "Plugin state backend (sqlite, toml, memory)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Override the data directory")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Write a debug log to <data-dir>/debug.log")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context, version string) error {
	rootCmd.Version = version
	return fang.Execute(ctx, rootCmd, fang.WithVersion(version))
}

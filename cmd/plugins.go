package cmd

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"lovebug/plugin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List plugins",
	Long:  "List registered plugins, optionally fuzzy-filtered by id or name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPluginsList,
}

var pluginsEnableCmd = &cobra.Command{
	Use:   "enable <plugin-id>",
	Short: "Enable a plugin",
	Args:  cobra.ExactArgs(1),
	RunE:  setPluginEnabled(true),
}

var pluginsDisableCmd = &cobra.Command{
	Use:   "disable <plugin-id>",
	Short: "Disable a plugin",
	Args:  cobra.ExactArgs(1),
	RunE:  setPluginEnabled(false),
}

var pluginsToggleCmd = &cobra.Command{
	Use:   "toggle <plugin-id>",
	Short: "Flip a plugin's enabled flag",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginsToggle,
}

var pluginsPromptCmd = &cobra.Command{
	Use:   "prompt <plugin-id> [prompt...]",
	Short: "Show or set a plugin's custom prompt",
	Long:  "Without a prompt, print the effective prompt. Use {text} where the selected text goes.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPluginsPrompt,
}

var pluginsResetCmd = &cobra.Command{
	Use:   "reset <plugin-id>",
	Short: "Restore a plugin's default prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPluginsReset,
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsEnableCmd)
	pluginsCmd.AddCommand(pluginsDisableCmd)
	pluginsCmd.AddCommand(pluginsToggleCmd)
	pluginsCmd.AddCommand(pluginsPromptCmd)
	pluginsCmd.AddCommand(pluginsResetCmd)

	pluginsListCmd.Flags().Bool("enabled", false, "Only show enabled plugins")
}

func pluginRows(plugins []plugin.Plugin) pterm.TableData {
	rows := pterm.TableData{{"ID", "Name", "Category", "Enabled", "Prompt"}}
	for _, p := range plugins {
		prompt := "default"
		if p.CustomPrompt != "" {
			prompt = "custom"
		} else if p.DefaultPrompt == "" {
			prompt = "-"
		}
		rows = append(rows, []string{
			p.ID,
			strings.TrimSpace(p.Icon + " " + p.Name),
			string(p.Category),
			lo.Ternary(p.Enabled, "yes", "no"),
			prompt,
		})
	}
	return rows
}

func runPluginsList(cmd *cobra.Command, args []string) error {
	enabledOnly, _ := cmd.Flags().GetBool("enabled")

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	plugins := a.registry.Find(query)
	if enabledOnly {
		plugins = lo.Filter(plugins, func(p plugin.Plugin, _ int) bool { return p.Enabled })
	}
	if len(plugins) == 0 {
		pterm.Info.Println("No plugins found")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(pluginRows(plugins)).Render()
}

func setPluginEnabled(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, ok := a.registry.SetEnabled(cmd.Context(), args[0], enabled)
		if !ok {
			return plugin.NotFound(args[0])
		}
		pterm.Success.Printfln("%s %s", p.Name, lo.Ternary(p.Enabled, "enabled", "disabled"))
		return nil
	}
}

func runPluginsToggle(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, ok := a.registry.Toggle(cmd.Context(), args[0])
	if !ok {
		return plugin.NotFound(args[0])
	}
	pterm.Success.Printfln("%s %s", p.Name, lo.Ternary(p.Enabled, "enabled", "disabled"))
	return nil
}

func runPluginsPrompt(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	if len(args) == 1 {
		prompt, ok := a.registry.EffectivePrompt(id)
		if !ok {
			return plugin.NotFound(id)
		}
		if prompt == "" {
			pterm.Info.Printfln("%s has no prompt", id)
			return nil
		}
		cmd.Println(prompt)
		return nil
	}

	p, ok := a.registry.SetCustomPrompt(cmd.Context(), id, strings.Join(args[1:], " "))
	if !ok {
		return plugin.NotFound(id)
	}
	pterm.Success.Printfln("Custom prompt saved for %s", p.Name)
	return nil
}

func runPluginsReset(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p, ok := a.registry.ResetPrompt(cmd.Context(), args[0])
	if !ok {
		return plugin.NotFound(args[0])
	}
	pterm.Success.Printfln("%s uses its default prompt again", p.Name)
	return nil
}

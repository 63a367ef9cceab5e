package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <plugin-id> [text...]",
	Short: "Run a plugin on text",
	Long:  "Run a plugin on the given text. Without text arguments the text is read from stdin.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlugin,
}

func init() {
	runCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// pluginInput joins args, or reads in when there are none.
func pluginInput(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func runPlugin(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	text, err := pluginInput(args[1:], cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	res := a.registry.Execute(cmd.Context(), id, text)

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if !res.Success() {
			return res.Err()
		}
		return nil
	}

	if !res.Success() {
		pterm.Error.Printfln("%s (%s)", res.Message(), res.Kind())
		return res.Err()
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Data())
	return nil
}

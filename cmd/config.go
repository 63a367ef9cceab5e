package cmd

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"lovebug/config"
	"lovebug/security"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the API settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Change an API setting",
	Long:  "Change one of model_type, endpoint, model or api_key. The API key goes to the credential store.",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the stored API key",
	Args:  cobra.NoArgs,
	RunE:  runConfigClear,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configClearCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	apiKey := "(not set)"
	if key := cfg.APIKey(); key != "" {
		apiKey = security.MaskValue(key)
	}

	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Data directory", cfg.DataDir()})
	rows = append(rows, []string{"Model type", cfg.ModelType})
	rows = append(rows, []string{"Endpoint", cfg.Endpoint})
	rows = append(rows, []string{"Model", cfg.Model})
	rows = append(rows, []string{"API key", apiKey})
	rows = append(rows, []string{"Credential storage", string(cfg.CredentialStore.GetMethod())})
	rows = append(rows, []string{"Timeout", cfg.Timeout.String()})
	rows = append(rows, []string{"Rate limit", fmt.Sprintf("%d per %s", cfg.RateLimit, cfg.RateWindow)})
	rows = append(rows, []string{"Max input", fmt.Sprintf("%d chars", cfg.MaxInputLength)})
	rows = append(rows, []string{"Storage backend", cfg.StorageBackend})
	rows = append(rows, []string{"Plugin cache TTL", cfg.CacheTTL.String()})
	if cfg.ScriptDirectory != "" {
		rows = append(rows, []string{"Script directory", cfg.ScriptDirectory})
	}
	rows = append(rows, []string{"Allowed origins", strings.Join(cfg.AllowedOrigins, ", ")})

	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	field, value := args[0], strings.TrimSpace(args[1])

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	switch field {
	case "api_key", "apiKey":
		if err := a.saveAPIKey(value); err != nil {
			return err
		}
		pterm.Success.Println("API key saved")
		return nil
	case "modelType":
		field = "model_type"
	}

	if err := config.UpdateAPISetting(a.cfg.DataDir(), field, value); err != nil {
		return err
	}
	pterm.Success.Printfln("%s = %s", field, value)
	return nil
}

func runConfigClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	store := a.cfg.CredentialStore
	if err := store.Delete(config.CredentialAPIKey); err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	if err := store.Save(a.cfg.DataDir()); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	pterm.Success.Println("API key removed")
	return nil
}

package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const pingTimeout = 10 * time.Second

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured backend is reachable",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p := a.Provider()
	if p == nil {
		pterm.Error.Println("API 설정이 필요합니다. Run `lovebug config set` first.")
		return errors.New("no provider configured")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
	defer cancel()

	spinner, _ := pterm.DefaultSpinner.Start("Checking " + p.GetDisplayName())
	ok := a.CheckConnection(ctx)
	if !ok {
		spinner.Fail("연결 끊김: " + a.cfg.Endpoint)
		return errors.New("backend unreachable")
	}
	spinner.Success("연결됨: " + p.GetDisplayName())

	if a.usesSSE() {
		pterm.Info.Printfln("Remaining requests in this window: %d", a.client.RemainingRequests())
	}
	return nil
}

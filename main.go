package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lovebug/cmd"
)

const Version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, Version); err != nil {
		stop()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(openFromConfig).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

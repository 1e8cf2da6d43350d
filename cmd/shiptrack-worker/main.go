package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ShipTrack/config"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		panic(err)
	}
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = RunShipTrackWorker(ctx, cfg, defaultWorkerFactories(), workerHTTPOpts{
		httpAddr: cfg.ShipTrack.WorkerHTTPAddr,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}

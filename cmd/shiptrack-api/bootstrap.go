package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/ShipTrack/config"
	shipmentsapi "github.com/BearBump/ShipTrack/internal/api/shipments_api"
	"github.com/BearBump/ShipTrack/internal/auth/tokens"
	"github.com/BearBump/ShipTrack/internal/bootstrap"
)

type shipTrackAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   shipTrackAPIOpts
	api    *shipmentsapi.API
	deps   *bootstrap.Deps
}

func mustBootstrapShipTrackAPI() *shipTrackAPIApp {
	if err := config.LoadEnv(); err != nil {
		panic(err)
	}
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		swaggerPath = "api/shiptrack.swagger.json"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config, %v", err))
	}

	grpcAddr := cfg.ShipTrack.GRPCAddr
	if grpcAddr == "" {
		grpcAddr = ":50051"
	}
	httpAddr := cfg.ShipTrack.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	if cfg.ShipTrack.JWTSecret == "" {
		panic("jwt secret is required (SHIPTRACK_JWT_SECRET or shiptrack.jwt_secret)")
	}
	tokenTTL := time.Duration(cfg.ShipTrack.TokenTTLMinutes) * time.Minute

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	deps, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		cancel()
		panic(err)
	}

	return &shipTrackAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: shipTrackAPIOpts{
			grpcAddr:    grpcAddr,
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
		},
		api:  shipmentsapi.New(deps.Users, deps.Shipments, tokens.NewIssuer(cfg.ShipTrack.JWTSecret, tokenTTL)),
		deps: deps,
	}
}

func (a *shipTrackAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.deps != nil {
		a.deps.Close()
	}
}

func (a *shipTrackAPIApp) Run() error {
	return runShipTrackAPI(a.ctx, a.opts, a.api)
}

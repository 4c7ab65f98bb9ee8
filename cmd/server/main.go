package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chmielvu/Forge-Text/internal/bootstrap"
	"github.com/chmielvu/Forge-Text/internal/server"
	"github.com/chmielvu/Forge-Text/internal/server/middleware"
	"github.com/chmielvu/Forge-Text/pkg/config"
	"github.com/chmielvu/Forge-Text/pkg/logger"
	"github.com/chmielvu/Forge-Text/pkg/logger/console"
)

func main() {
	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{}))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}
	if err := bootstrap.InitLogger(cfg); err != nil {
		logger.Fatal("Failed to create logger", "err", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to start engine", "err", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to close engine", "err", err)
		}
	}()

	e := server.New(&middleware.App{Controller: rt.Controller, Snapshots: rt.Snapshots}, cfg.APIKey)
	if err := server.Run(ctx, e, cfg.Port); err != nil {
		logger.Error("Server stopped", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}

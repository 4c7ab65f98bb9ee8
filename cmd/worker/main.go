package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chmielvu/Forge-Text/internal/bootstrap"
	"github.com/chmielvu/Forge-Text/internal/queue"
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

	// Init rabbitmq
	conn, err := queue.Dial(ctx, cfg.Queue.URL, 30, 2*time.Second)
	if err != nil {
		logger.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{cfg.Queue.Name}, cfg.Queue.RetryDelay); err != nil {
		logger.Fatal("Failed to declare queues", "err", err)
	}

	consumer := queue.NewConsumer(queue.NewConsumerParams{
		Channel:    ch,
		Queue:      cfg.Queue.Name,
		MaxRetries: cfg.Queue.MaxRetries,
		Prefetch:   cfg.Queue.Prefetch,
		Handler:    queue.TurnHandler(rt.Controller, rt.Snapshots),
	})
	if err := consumer.Run(ctx); err != nil {
		logger.Error("Consumer stopped", "err", err)
	}
	logger.Info("Shutdown signal received, exiting...")
}

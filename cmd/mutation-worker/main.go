// Command mutation-worker consumes ledger mutation events from
// RabbitMQ and writes an audit log. It is the external side of the
// event pipeline: the API publishes, this worker (or a replacement
// integration) consumes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pravacash/internal/amqp"
	"pravacash/internal/config"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mutation worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("amqp init failed", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("starting mutation worker",
		"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	if err := amqpClient.ConsumeMutations(ctx, amqp.AuditHandler(logger)); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("message consumption failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("mutation worker stopped")
}

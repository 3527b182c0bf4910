package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"receiptbook/internal/amqp"
	"receiptbook/internal/backend"
	"receiptbook/internal/cli"
	"receiptbook/internal/services"
	"receiptbook/internal/session"
	"receiptbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting ledger-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backend.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker reuses the account service for its ledger rewrites but
	// never publishes tasks itself, so it gets no AMQP client.
	accounts := services.NewAccountService(result.Store, result.Store,
		session.NewManager(time.Hour), nil, nil, nil, cfg.AdminUsername)

	maintenanceWorker := worker.NewMaintenanceWorker(accounts)

	logger.Info("Worker ready, consuming maintenance tasks",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"backend", cfg.DataBackend)

	err = amqpClient.ConsumeTasks(ctx, func(task *amqp.MaintenanceTask) error {
		return maintenanceWorker.HandleTask(ctx, task)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}

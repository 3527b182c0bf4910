package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"receiptbook/internal/amqp"
	"receiptbook/internal/backend"
	"receiptbook/internal/cache"
	"receiptbook/internal/cli"
	"receiptbook/internal/core"
	"receiptbook/internal/extract"
	apphttp "receiptbook/internal/http"
	"receiptbook/internal/services"
	"receiptbook/internal/session"
)

const sessionTTL = 24 * time.Hour

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

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

	// Read caches and the session table share one cleanup loop.
	ledgerCache := cache.NewLRUCache[services.LedgerSnapshot](cfg.CacheMaxSize, cfg.LedgerCacheTTL)
	usersCache := cache.NewLRUCache[[]core.User](cfg.CacheMaxSize, cfg.UsersCacheTTL)
	sessions := session.NewManager(sessionTTL)

	cacheManager := cache.NewManager()
	cacheManager.Register(ledgerCache)
	cacheManager.Register(usersCache)
	cacheManager.Register(sessions)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	// Receipt extraction is optional; without a key the extract
	// endpoint reports extraction failures.
	var extractor services.Extractor
	if cfg.GeminiAPIKey != "" {
		gemini, err := extract.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		extractor = gemini
		logger.Info("Gemini extraction enabled", "model", cfg.GeminiModel)
	} else {
		logger.Warn("Gemini extraction disabled - no GEMINI_API_KEY provided")
	}

	// The maintenance queue is optional; without a broker, purge
	// rewrites run inline in the request.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, ledger maintenance runs inline", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("Maintenance queue enabled",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	receipts := services.NewReceiptService(extractor, result.Store, ledgerCache)
	dashboard := services.NewDashboardService(result.Store, ledgerCache)
	accounts := services.NewAccountService(result.Store, result.Store, sessions, amqpClient, usersCache, ledgerCache, cfg.AdminUsername)

	srv := apphttp.NewServer(":"+cfg.Port, receipts, dashboard, accounts, sessions)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting receiptbook server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}

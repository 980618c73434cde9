package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pravacash/internal/amqp"
	"pravacash/internal/auth"
	"pravacash/internal/cache"
	"pravacash/internal/config"
	"pravacash/internal/core"
	apphttp "pravacash/internal/http"
	applog "pravacash/internal/log"
	"pravacash/internal/push"
	"pravacash/internal/services"
	"pravacash/internal/storage"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration invalid", applog.FieldError, err.Error())
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("sqlite init failed",
			applog.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without a broker URL mutations are simply not
	// published.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("amqp init failed", applog.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		logger.Info("amqp connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("amqp disabled, no AMQP_URL provided")
	}

	hub := push.NewHub(logger)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	snapshots := cache.NewLRUCache[[]core.Transaction](cfg.ReportCacheSize, cfg.ReportCacheTTL)

	cacheManager := cache.NewManager()
	cacheManager.Register(snapshots)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	users := services.NewUserService(repo, issuer, hub, logger)
	txs := services.NewTransactionService(repo, amqpClient, hub, snapshots, logger)
	reports := services.NewReportService(txs, cfg.Location())
	admin := services.NewAdminService(repo, hub, snapshots, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Config:  cfg,
		Logger:  logger,
		Issuer:  issuer,
		Users:   users,
		Txs:     txs,
		Reports: reports,
		Admin:   admin,
		Hub:     hub,
		Repo:    repo,
	})
	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", applog.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("starting pravacash server",
		"port", cfg.Port, "db", cfg.SQLiteDBPath, "timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}

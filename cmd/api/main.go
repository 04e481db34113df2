package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vas-gateway/config"
	httpHandler "vas-gateway/internal/adapter/http/handler"
	"vas-gateway/internal/adapter/provider"
	pgStorage "vas-gateway/internal/adapter/storage/postgres"
	redisStorage "vas-gateway/internal/adapter/storage/redis"
	"vas-gateway/internal/core/ports"
	"vas-gateway/internal/service"
	"vas-gateway/internal/worker"
	"vas-gateway/pkg/logger"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting VAS Gateway API")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Business timezone for the merchant daily-count window
	loc, err := time.LoadLocation(cfg.Vending.Timezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Vending.Timezone).Msg("Invalid timezone")
	}

	// Initialize repositories
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	catalogRepo := pgStorage.NewCatalogRepo(pool)
	accountRepo := pgStorage.NewProviderAccountRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	kvCache := redisStorage.NewKVCache(rdb)
	leaseStore := redisStorage.NewLeaseStore(rdb)

	// Queue client for scheduling requeries
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Queue.Addr,
		Password: cfg.Queue.Password,
		DB:       cfg.Queue.DB,
	})
	defer asynqClient.Close()
	scheduler := worker.NewRequeryEnqueuer(asynqClient, cfg.Vending.RequeryDelay, cfg.Vending.RequeryRetries, log)

	// Provider dispatcher
	dispatcher := provider.NewDispatcher(cfg.Vending.ProviderTimeout, log)

	// Initialize business services
	ledgerSvc := service.NewLedgerService(merchantRepo, log)
	catalogSvc := service.NewCatalogService(catalogRepo, accountRepo, kvCache, log)
	tokenSvc := service.NewTokenService(merchantRepo, log)
	vendingSvc := service.NewVendingService(
		merchantRepo,
		txRepo,
		accountRepo,
		catalogSvc,
		ledgerSvc,
		dispatcher,
		transactor,
		scheduler,
		loc,
		log,
	)
	reconcileSvc := service.NewReconcileService(
		txRepo,
		accountRepo,
		ledgerSvc,
		dispatcher,
		transactor,
		leaseStore,
		cfg.Vending.RequeryRetries,
		cfg.Vending.SweepThreshold,
		cfg.Vending.SweepBatchSize,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		VendingSvc:     vendingSvc,
		CatalogSvc:     catalogSvc,
		ReconcileSvc:   reconcileSvc,
		TokenSvc:       tokenSvc,
		MerchantRepo:   merchantRepo,
		AuthCache:      kvCache,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

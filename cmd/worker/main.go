package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vas-gateway/config"
	"vas-gateway/internal/adapter/provider"
	pgStorage "vas-gateway/internal/adapter/storage/postgres"
	redisStorage "vas-gateway/internal/adapter/storage/redis"
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
	log.Info().Msg("Starting VAS Gateway worker")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client (leases)
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories and services
	merchantRepo := pgStorage.NewMerchantRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	accountRepo := pgStorage.NewProviderAccountRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	leaseStore := redisStorage.NewLeaseStore(rdb)

	dispatcher := provider.NewDispatcher(cfg.Vending.ProviderTimeout, log)
	ledgerSvc := service.NewLedgerService(merchantRepo, log)
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

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Queue.Addr,
		Password: cfg.Queue.Password,
		DB:       cfg.Queue.DB,
	}

	// Task server: requeries retry at a fixed interval, not exponential backoff
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    cfg.Queue.Concurrency,
		RetryDelayFunc: worker.FixedRetryDelay(cfg.Vending.RequeryInterval),
	})
	mux := asynq.NewServeMux()
	worker.NewHandlers(reconcileSvc, log).Register(mux)

	// Periodic timeout sweep
	sched := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	if _, err := sched.Register(cfg.Vending.SweepInterval, worker.NewTimeoutSweepTask()); err != nil {
		log.Fatal().Err(err).Str("cron", cfg.Vending.SweepInterval).Msg("Failed to register timeout sweep")
	}

	go func() {
		if err := sched.Run(); err != nil {
			log.Fatal().Err(err).Msg("Scheduler failed")
		}
	}()
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Task server failed")
		}
	}()
	log.Info().
		Int("concurrency", cfg.Queue.Concurrency).
		Str("sweep_cron", cfg.Vending.SweepInterval).
		Msg("Worker running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down worker...")

	sched.Shutdown()
	srv.Stop()
	srv.Shutdown()

	// Give in-flight tasks a moment to settle before the pool closes
	time.Sleep(time.Second)
	log.Info().Msg("Worker exited")
}

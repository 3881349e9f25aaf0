package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainpay-gateway/config"
	chainAdapter "chainpay-gateway/internal/adapter/chain"
	httpHandler "chainpay-gateway/internal/adapter/http/handler"
	pgStorage "chainpay-gateway/internal/adapter/storage/postgres"
	redisStorage "chainpay-gateway/internal/adapter/storage/redis"
	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/internal/service"
	"chainpay-gateway/internal/wallet"
	"chainpay-gateway/pkg/logger"
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
		Msg("Starting ChainPay Gateway")

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

	// Master wallet seed for HD address derivation
	seed, err := wallet.SeedFromInput(cfg.Wallet.MasterSeed)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid wallet master seed")
	}

	// Initialize repositories
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	addressRepo := pgStorage.NewAddressRepo(pool)
	businessRepo := pgStorage.NewBusinessRepo(pool)
	attemptRepo := pgStorage.NewWebhookAttemptRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	pollLock := redisStorage.NewPollLock(rdb)

	// Initialize core services
	vault, err := service.NewAESKeyVault(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize key vault")
	}
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Chain providers
	registry, err := chainAdapter.BuildRegistry(ctx, cfg.Chains, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build chain provider registry")
	}

	// Per-chain thresholds from config
	confirmations := make(map[domain.Chain]uint64, len(cfg.Chains))
	ttls := make(map[domain.Chain]time.Duration, len(cfg.Chains))
	for name, cc := range cfg.Chains {
		chain, ok := domain.ParseChain(name)
		if !ok {
			continue
		}
		confirmations[chain] = cc.RequiredConfirmations
		if cc.PaymentTTL > 0 {
			ttls[chain] = cc.PaymentTTL
		}
	}
	platformWallets := make(map[domain.Chain]string, len(cfg.Forward.PlatformWallets))
	for name, addr := range cfg.Forward.PlatformWallets {
		if chain, ok := domain.ParseChain(name); ok {
			platformWallets[chain] = addr
		}
	}

	// Initialize business services
	allocator := service.NewAllocatorService(addressRepo, vault, log)
	paymentSvc := service.NewPaymentService(paymentRepo, businessRepo, allocator, idempotencyCache, transactor, seed, ttls, log)
	entitlements := service.NewEntitlementsService(businessRepo)
	notifier := service.NewWebhookService(
		businessRepo,
		attemptRepo,
		vault,
		sigSvc,
		&http.Client{Timeout: cfg.Webhook.Timeout},
		cfg.Webhook.MaxAttempts,
		log,
	)
	forwarder := service.NewForwarderService(
		paymentRepo,
		addressRepo,
		businessRepo,
		registry,
		vault,
		entitlements,
		notifier,
		cfg.Forward.CommissionBps,
		cfg.Forward.ReducedCommissionBps,
		platformWallets,
		log,
	)
	monitor := service.NewMonitorService(
		paymentRepo,
		registry,
		forwarder,
		notifier,
		pollLock,
		confirmations,
		cfg.Monitor.PollInterval,
		cfg.Monitor.BatchSize,
		cfg.Monitor.LockTTL,
		log,
	)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		PaymentSvc:     paymentSvc,
		AttemptRepo:    attemptRepo,
		TokenSvc:       tokenSvc,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// Start the deposit monitor for every configured chain
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		monitor.Run(monitorCtx, registry.Chains())
	}()

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

	stopMonitor()
	<-monitorDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

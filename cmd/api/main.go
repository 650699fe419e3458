package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stablecoin-checkout/config"
	httpHandler "stablecoin-checkout/internal/adapter/http/handler"
	"stablecoin-checkout/internal/adapter/processor"
	redisStorage "stablecoin-checkout/internal/adapter/storage/redis"
	"stablecoin-checkout/internal/adapter/wallet"
	"stablecoin-checkout/internal/core/ports"
	"stablecoin-checkout/internal/service"
	"stablecoin-checkout/pkg/logger"
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
		Str("chain", cfg.Checkout.Chain).
		Str("currency", cfg.Checkout.Currency).
		Msg("Starting Stablecoin Checkout")

	ctx := context.Background()

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize processor adapters
	processorClient := processor.NewClient(cfg.Processor, log)
	orderRequestor := processor.NewOrderRequestor(processorClient, log)
	statusPoller := processor.NewStatusPoller(processorClient)
	balanceFetcher := processor.NewBalanceFetcher(processorClient, cfg.Checkout.Currency)

	// Initialize wallet adapters
	walletClient := wallet.NewRPCWalletClient(cfg.Wallet, log)
	signer := wallet.NewSigner(walletClient, log)

	// Initialize Redis stores
	balanceCache := redisStorage.NewBalanceCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	tokenSvc := service.NewJWTSessionTokenService(cfg.Session.TokenSecret, cfg.Session.TokenExpiry, cfg.Session.Issuer)
	balanceOracle := service.NewBalanceOracle(balanceFetcher, balanceCache, cfg.Checkout.BalanceTTL, log)
	checkoutSvc := service.NewCheckoutService(orderRequestor, statusPoller, balanceOracle, signer, cfg.Checkout, log)

	// Initialize health checkers
	redisHealth := redisStorage.NewHealthCheck(rdb)
	processorHealth := processor.NewHealthCheck(processorClient)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CheckoutSvc:    checkoutSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{redisHealth, processorHealth},
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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"papertrade/internal/config"
	"papertrade/internal/database"
	"papertrade/internal/explain"
	"papertrade/internal/handlers"
	"papertrade/internal/logger"
	"papertrade/internal/provider"
	"papertrade/internal/router"
	"papertrade/internal/services"
	"papertrade/internal/validator"
)

//go:generate swag init -g cmd/api/main.go -d ../../ -o ../../internal/docs

// @title           Papertrade API
// @version         1.0
// @description     Simulated stock trading with a virtual cash balance, portfolio valuation and a leaderboard.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource := newPriceSource(ctx, appConfig)
	defer func() {
		if err := closeSource(); err != nil {
			log.Warnf("quote cache close error: %v", err)
		}
	}()
	generator := newGenerator(ctx, appConfig)

	// Services
	db := dbManager.DB()
	userService := services.NewUserService(db, appConfig.StartingBalance)
	stockService := services.NewStockService(db, source)
	tradeService := services.NewTradeService(db, stockService)
	portfolioService := services.NewPortfolioService(db, stockService)
	snapshotService := services.NewPortfolioSnapshotService(db)
	marketService := services.NewMarketService(db)
	explanationService := services.NewExplanationService(db, generator)
	auditService := services.NewAuditService(db)

	engine := router.New(router.Options{
		CORSAllowedOrigins: appConfig.CORSAllowedOrigins,
		PipelineAPIKey:     appConfig.PipelineAPIKey,
	}, router.Handlers{
		Auth:      handlers.NewAuthHandler(userService, auditService),
		Trade:     handlers.NewTradeHandler(tradeService, auditService),
		Portfolio: handlers.NewPortfolioHandler(portfolioService),
		Snapshot:  handlers.NewPortfolioSnapshotHandler(snapshotService, auditService),
		Stock:     handlers.NewStockHandler(stockService, auditService),
		Market:    handlers.NewMarketHandler(marketService),
		Explain:   handlers.NewExplanationHandler(explanationService),
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting papertrade server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPriceSource builds the Yahoo provider, wrapped in a redis quote cache
// when REDIS_URL is set and reachable. The returned func releases the redis
// client and is a no-op without one.
func newPriceSource(ctx context.Context, cfg *config.Config) (provider.Source, func() error) {
	log := logger.Get()
	noop := func() error { return nil }
	yahoo := provider.NewYahooProvider(&http.Client{Timeout: cfg.PriceRequestTimeout}, cfg.YahooBaseURL)
	if cfg.YahooSummaryURL != "" {
		yahoo.WithSummaryURL(cfg.YahooSummaryURL)
	}

	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, quote cache disabled")
		return yahoo, noop
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warnw("invalid REDIS_URL, quote cache disabled", "error", err)
		return yahoo, noop
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warnw("redis unreachable, quote cache disabled", "error", err)
		_ = client.Close()
		return yahoo, noop
	}
	log.Infow("quote cache enabled", "ttl", cfg.QuoteCacheTTL.String())
	return provider.NewCachedSource(yahoo, provider.NewRedisQuoteCache(client, cfg.QuoteCacheTTL)), client.Close
}

// newGenerator returns the Gemini generator, or nil when no API key is configured.
func newGenerator(ctx context.Context, cfg *config.Config) explain.Generator {
	if cfg.GeminiAPIKey == "" {
		logger.Get().Info("GEMINI_API_KEY not set, explanations use the fallback table")
		return nil
	}
	gen, err := explain.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Get().Warnw("gemini client unavailable, explanations use the fallback table", "error", err)
		return nil
	}
	return gen
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/yourorg/stocksim/internal/auth"
	"github.com/yourorg/stocksim/internal/gamification"
	"github.com/yourorg/stocksim/internal/gateway"
	"github.com/yourorg/stocksim/internal/ledger"
	"github.com/yourorg/stocksim/internal/marketdata"
	pgRepo "github.com/yourorg/stocksim/internal/repository/postgres"
	redisRepo "github.com/yourorg/stocksim/internal/repository/redis"
	"github.com/yourorg/stocksim/internal/watchlist"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	dbURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	quoteAPIKey := os.Getenv("QUOTE_API_KEY")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	startingBalance := envFloat("STARTING_BALANCE", 100000)
	tickInterval := envDuration("TICK_INTERVAL", 3*time.Second)

	db, err := pgRepo.Connect(dbURL)
	if err != nil {
		logger.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	if err := pgRepo.RunMigrations(dbURL, "migrations"); err != nil {
		logger.Error("failed to run migrations", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	redisClient, err := redisRepo.Connect(redisURL)
	if err != nil {
		logger.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	logger.Info("redis connected")

	userRepo := pgRepo.NewUserRepo(db)
	orderRepo := pgRepo.NewOrderRepo(db)
	xpRepo := pgRepo.NewXPRepo(db)
	watchlistRepo := pgRepo.NewWatchlistRepo(db)
	dailyPriceRepo := pgRepo.NewDailyPriceRepo(db)
	priceRepo := redisRepo.NewPriceRepo(redisClient)

	jwtSvc := auth.NewJWTService(jwtSecret)

	gamificationSvc := gamification.NewService(xpRepo, orderRepo, userRepo, logger)
	ticker := marketdata.NewTicker(priceRepo, dailyPriceRepo, tickInterval, logger)
	charts := marketdata.NewChartService(dailyPriceRepo, time.Now().UnixNano())
	quotes := marketdata.NewQuoteClient(quoteAPIKey, logger)
	ledgerSvc := ledger.NewService(userRepo, orderRepo, gamificationSvc, ticker, logger)
	watchlistSvc := watchlist.NewService(watchlistRepo, quotes, logger)

	hub := gateway.NewHub(priceRepo, logger)

	handlers := gateway.NewHandlers(
		userRepo, ledgerSvc, gamificationSvc, watchlistSvc, charts,
		jwtSvc, logger, startingBalance,
	)
	router := gateway.NewRouter(handlers, hub, jwtSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go hub.Run(ctx)
	go ticker.Run(ctx)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
	logger.Info("server stopped")
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/user/trend-service/internal/adapter/apify"
	"github.com/user/trend-service/internal/adapter/postgres"
	redis_adapter "github.com/user/trend-service/internal/adapter/redis"
	"github.com/user/trend-service/internal/delivery/http/handler"
	"github.com/user/trend-service/internal/delivery/http/router"
	"github.com/user/trend-service/internal/repository"
	"github.com/user/trend-service/internal/usecase"
	"github.com/user/trend-service/pkg/config"
	"github.com/user/trend-service/pkg/logger"
	"github.com/user/trend-service/pkg/metrics"
)

func main() {
	// --- Configuration ---
	if err := godotenv.Load(); err != nil {
		// A missing .env is fine; plain env vars still apply.
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := config.Load()

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	ctx := context.Background()

	if cfg.ApifyToken == "" {
		slog.Warn("APIFY_TOKEN is not set, upstream calls will be rejected")
	}

	// --- Scraper client ---
	scraperRepo := apify.NewClient(apify.Config{
		BaseURL:          cfg.ApifyBaseURL,
		Token:            cfg.ApifyToken,
		ActorIDInstagram: cfg.ActorIDInstagram,
		ActorIDTikTok:    cfg.ActorIDTikTok,
		PollInterval:     cfg.PollInterval,
		PollMaxAttempts:  cfg.PollMaxAttempts,
		RequestTimeout:   cfg.RequestTimeout,
	}, slog.Default())

	// --- Rate limiter (fail-open when Redis is absent) ---
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			slog.Error("Unable to connect to Redis, rate limiting will fail open", "error", err)
		} else {
			slog.Info("Redis connection established")
		}
	} else {
		slog.Warn("REDIS_ADDR not set, rate limiting is disabled")
	}
	rateLimitRepo := redis_adapter.NewRateLimitRepo(redisClient, cfg.RateLimitPerDay, slog.Default())

	// --- Analysis history (optional) ---
	var historyRepo repository.AnalysisHistoryRepository
	if cfg.PostgresHost != "" {
		pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		dbpool, err := pgxpool.New(ctx, pgConnString)
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		historyRepo = postgres.NewAnalysisHistoryRepo(dbpool)
		slog.Info("PostgreSQL connection pool established")
	} else {
		slog.Warn("POSTGRES_HOST not set, analysis history is disabled")
	}

	// --- Use Cases ---
	limits := usecase.Limits{
		ResultLimit:  cfg.ResultsLimit,
		RequestLimit: cfg.MaxRequestsPerCrawl,
		Concurrency:  cfg.MaxConcurrency,
	}
	analyzer := usecase.NewTrendAnalyzer(scraperRepo, historyRepo, limits, slog.Default())

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(analyzer, scraperRepo, rateLimitRepo, historyRepo, limits)
	httpRouter := router.New(apiHandler)

	// The analyze route waits out the full poll budget (120s worst case), so
	// the write timeout sits just above it.
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 125 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("Starting server", "port", cfg.ServerPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}
}

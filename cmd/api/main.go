// cmd/api/main.go
// Main entry point for the dating match service
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/imadgeboyega/kiekky-match/internal/auth"
	"github.com/imadgeboyega/kiekky-match/internal/common/database"
	"github.com/imadgeboyega/kiekky-match/internal/common/logging"
	"github.com/imadgeboyega/kiekky-match/internal/common/utils"
	"github.com/imadgeboyega/kiekky-match/internal/config"
	"github.com/imadgeboyega/kiekky-match/internal/dating"
)

var startTime = time.Now()

func main() {
	// 1. Load environment variables
	envErr := godotenv.Load()

	// 2. Load configuration
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Debug().Msg("no .env file found, using environment variables")
	}

	// 3. Validate configuration
	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Info().Str("environment", cfg.Environment).Str("store", cfg.StoreBackend).
		Str("feed_cache", cfg.FeedCacheBackend).Msg("configuration loaded")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 4. Storage
	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	if cfg.SeedDemo {
		if err := dating.SeedDemo(ctx, store); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed demo data")
		}
		logging.Info().Msg("demo profiles seeded")
	}

	// 5. Feed cache
	feedCache, closeCache := openFeedCache(ctx, cfg)
	defer closeCache()

	// 6. Match events
	var notifier dating.MatchNotifier
	var hub *dating.Hub
	if cfg.EnableMatchEvents {
		hub = dating.NewHub()
		go hub.Run(ctx)
		notifier = hub
	}

	// 7. Dating service
	service := dating.NewService(store, dating.Options{
		Weights: dating.Weights{
			Language:     cfg.Weights.Language,
			Denomination: cfg.Weights.Denomination,
			Goal:         cfg.Weights.Goal,
			Kashrut:      cfg.Weights.Kashrut,
			Shabbat:      cfg.Weights.Shabbat,
			City:         cfg.Weights.City,
		},
		Feed: dating.FeedOptions{
			DefaultPageSize: cfg.FeedDefaultPageSize,
			MaxPageSize:     cfg.FeedMaxPageSize,
			MaxCandidates:   cfg.FeedMaxCandidates,
		},
		MaxRetries: cfg.MatchMaxRetries,
		Cache:      feedCache,
		Notifier:   notifier,
	})
	handler := dating.NewHandler(service)
	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	// 8. Setup routes
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	dating.RegisterRoutes(router, handler, authMiddleware, dating.RouteOptions{
		SwipeRateLimit:  cfg.SwipeRateLimit,
		SwipeRateWindow: cfg.SwipeRateWindow,
		Hub:             hub,
	})

	// 9. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      newHTTPHandler(router, cfg.RequestTimeout),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutdown signal received")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	logging.Info().Msg("server exited gracefully")
}

func openStore(ctx context.Context, cfg *config.Config) (dating.Store, func()) {
	if cfg.StoreBackend == "memory" {
		logging.Warn().Msg("using in-memory store, data is lost on restart")
		return dating.NewMemoryStore(), func() {}
	}

	db, err := database.NewPostgresDBFromURL(ctx, cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	if err := dating.Migrate(ctx, db); err != nil {
		logging.Fatal().Err(err).Msg("failed to run migrations")
	}
	logging.Info().Msg("PostgreSQL connected and migrated")

	store := dating.NewPostgresRepository(db, dating.BreakerConfig{
		Failures: uint32(cfg.BreakerFailures),
		Timeout:  cfg.BreakerTimeout,
	})
	return store, func() { db.Close() }
}

func openFeedCache(ctx context.Context, cfg *config.Config) (dating.FeedCache, func()) {
	switch cfg.FeedCacheBackend {
	case "none":
		return dating.NewNoopFeedCache(), func() {}
	case "redis":
		client, err := database.NewRedisClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			// the cache is optional; fall back to process memory
			logging.Warn().Err(err).Msg("redis unavailable, using in-memory feed cache")
			return dating.NewMemoryFeedCache(cfg.FeedCacheSize, cfg.FeedCacheTTL), func() {}
		}
		return dating.NewRedisFeedCache(client, cfg.FeedCacheTTL), closeRedis(client)
	default:
		return dating.NewMemoryFeedCache(cfg.FeedCacheSize, cfg.FeedCacheTTL), func() {}
	}
}

func closeRedis(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			logging.Warn().Err(err).Msg("closing redis client")
		}
	}
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	})
}

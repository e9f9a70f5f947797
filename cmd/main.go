package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/provguard/provguard/internal/api"
	"github.com/provguard/provguard/internal/config"
	"github.com/provguard/provguard/internal/configs/env"
	"github.com/provguard/provguard/internal/fetch"
	"github.com/provguard/provguard/internal/infra/mongo"
	redisInfra "github.com/provguard/provguard/internal/infra/redis"
	"github.com/provguard/provguard/internal/logger"
	"github.com/provguard/provguard/internal/metrics"
	"github.com/provguard/provguard/internal/models"
	"github.com/provguard/provguard/internal/provenance"
	"github.com/provguard/provguard/internal/repository"
	"github.com/provguard/provguard/internal/store"
)

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger.Init(cfg.LogLevel)
	log.Info().Str("source", cfg.SourceRepo).Str("target", cfg.TargetRepo).Msg("Starting provenance guard server")

	metrics.InitPrometheus()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    ":2112",
		Handler: metricsMux,
	}
	go func() {
		log.Info().Str("port", "2112").Msg("Metrics server started")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Metrics server failed to start")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fingerprint database partitions. A corrupt partition is fatal; a
	// stale index silently missing records would pass diffs it should
	// flag.
	var stores []*store.Store
	if cfg.PRDBPath != "" {
		s, err := store.LoadFile(cfg.PRDBPath, models.SourceKindPR)
		if err != nil {
			if errors.Is(err, store.ErrCorruptDatabase) {
				log.Fatal().Err(err).Str("path", cfg.PRDBPath).Msg("Fingerprint database is corrupt, refusing to start")
			}
			log.Fatal().Err(err).Str("path", cfg.PRDBPath).Msg("Failed to load PR fingerprint database")
		}
		log.Info().Int("records", s.Len()).Str("path", cfg.PRDBPath).Msg("Loaded PR fingerprint partition")
		stores = append(stores, s)
	}
	if cfg.CommitDBPath != "" {
		s, err := store.LoadFile(cfg.CommitDBPath, models.SourceKindCommit)
		if err != nil {
			if errors.Is(err, store.ErrCorruptDatabase) {
				log.Fatal().Err(err).Str("path", cfg.CommitDBPath).Msg("Fingerprint database is corrupt, refusing to start")
			}
			log.Fatal().Err(err).Str("path", cfg.CommitDBPath).Msg("Failed to load commit fingerprint database")
		}
		log.Info().Int("records", s.Len()).Str("path", cfg.CommitDBPath).Msg("Loaded commit fingerprint partition")
		stores = append(stores, s)
	}

	// Optional report persistence
	var reportsRepo *repository.ReportsRepository
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create MongoDB client")
		}
		defer mongoClient.Close(ctx)
		reportsRepo = repository.NewReportsRepository(repository.NewMongoRepository(mongoClient))
	}

	// Fetcher chain: GitHub source with retries, fronted by the Redis
	// diff cache when configured.
	var fetcher fetch.DiffFetcher = fetch.NewGitHubClient(cfg.GitHubBaseURL, cfg.SourceRepo, cfg.GitHubToken, cfg.GitHubRPS)
	fetcher = fetch.WithRetry(fetcher, cfg.FetchRetries, cfg.FetchBackoffBase)
	if cfg.RedisHost != "" {
		redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Redis client")
		}
		defer redisClient.Close()
		fetcher = fetch.WithCache(fetcher, redisClient.Client, cfg.DiffCacheTTL)
	}

	workerPool := provenance.NewWorkerPool(ctx, cfg.ValidationWorkers)
	defer workerPool.Close()

	router := api.SetupRoutes(cfg, stores, fetcher, workerPool, reportsRepo)

	srv := api.StartServer(router, cfg.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	metricsCtx, metricsCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer metricsCancel()
	if err := metricsServer.Shutdown(metricsCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}

// cmd/recommender/main.go
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

	"go.uber.org/zap"

	"icfes-recommender/internal/api"
	"icfes-recommender/internal/common/camunda"
	"icfes-recommender/internal/common/config"
	"icfes-recommender/internal/common/database"
	"icfes-recommender/internal/common/logger"
	"icfes-recommender/internal/common/observability"
	"icfes-recommender/internal/recommendation"
	"icfes-recommender/internal/students"

	fsr "icfes-recommender/internal/workers/recommendation/fetch-student-recommendation"
	ra "icfes-recommender/internal/workers/recommendation/recommend-areas"
	rab "icfes-recommender/internal/workers/recommendation/recommend-areas-batch"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting recommender...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	if err := pg.Migrate(ctx, students.Schema...); err != nil {
		zapLog.Fatal("postgres migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(ctx, cfg.Database.Redis)
		return err
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch (optional) ---
	var (
		esClient *database.ElasticsearchClient
		index    students.Index
	)
	if cfg.Database.Elasticsearch.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(ctx); err != nil {
				return err
			}
			return esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.Index, students.IndexMapping)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		index = students.NewBreakerIndex(
			students.NewElasticIndex(esClient.Client, cfg.Database.Elasticsearch.Index),
			"elasticsearch", students.BreakerSettings{}, log,
		)
		zapLog.Info("Elasticsearch connected successfully",
			zap.String("index", cfg.Database.Elasticsearch.Index))
	} else {
		zapLog.Info("Elasticsearch disabled, stats fall back to postgres")
	}

	// --- Recommendation engine and student service ---
	catalog, err := config.BuildCatalog(cfg)
	if err != nil {
		zapLog.Fatal("invalid recommendation catalog", zap.Error(err))
	}
	engine := recommendation.NewEngine(catalog)

	service := students.NewService(
		students.NewPostgresStore(pg.DB),
		students.NewRedisCache(redis.Client, config.GetDuration(cfg.Recommendation.CacheTTL)),
		index,
		engine,
		log,
	)

	checks := map[string]api.Check{
		"postgres": pg.Ping,
		"redis":    redis.Ping,
	}
	if esClient != nil {
		checks["elasticsearch"] = esClient.Ping
	}

	// --- Zeebe workers (optional) ---
	var (
		zeebe   *camunda.Client
		workers []*camunda.CamundaWorker
	)
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		zapLog.Info("Zeebe client connected successfully")
		checks["zeebe"] = zeebe.HealthCheck

		workers = startWorkers(cfg, zeebe, engine, service, obs, log)
		zapLog.Info("workers registered", zap.Int("count", len(workers)))
	} else {
		zapLog.Info("Camunda disabled, serving HTTP only")
	}

	// --- HTTP API ---
	server := api.NewServer(api.Options{
		Service:          service,
		Engine:           engine,
		BatchConcurrency: cfg.Recommendation.BatchConcurrency,
		Checks:           checks,
		Recorder:         obs,
		AllowOrigins:     cfg.Server.AllowOrigins,
		RateLimit:        cfg.Server.RateLimit,
		Version:          cfg.App.Version,
		Logger:           log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("API server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down API server", zap.Error(err))
	}

	zapLog.Info("Recommender stopped gracefully")
}

// startWorkers opens a job worker for every enabled recommendation task.
func startWorkers(
	cfg *config.Config,
	zeebe *camunda.Client,
	engine *recommendation.Engine,
	service *students.Service,
	obs *observability.Observability,
	log logger.Logger,
) []*camunda.CamundaWorker {
	var started []*camunda.CamundaWorker
	start := func(taskType string, handler camunda.JobHandler) {
		if w := camunda.StartWorker(zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), handler, obs, log); w != nil {
			started = append(started, w)
		}
	}

	if config.IsWorkerEnabled(cfg, ra.TaskType) {
		rcfg := ra.LoadConfig()
		rcfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, ra.TaskType).Timeout)
		start(ra.TaskType, ra.NewHandler(rcfg, engine, log))
	}

	if config.IsWorkerEnabled(cfg, rab.TaskType) {
		bcfg := rab.LoadConfig()
		bcfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, rab.TaskType).Timeout)
		bcfg.Concurrency = cfg.Recommendation.BatchConcurrency
		start(rab.TaskType, rab.NewHandler(bcfg, engine, log))
	}

	if config.IsWorkerEnabled(cfg, fsr.TaskType) {
		fcfg := fsr.LoadConfig()
		fcfg.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, fsr.TaskType).Timeout)
		start(fsr.TaskType, fsr.NewHandler(fcfg, service, log))
	}

	return started
}

// Package main - punto de entrada de los procesos de fondo (Worker) del
// hub de evaluaciones de LUPE.
//
// El Worker se encarga de las tareas periódicas de mantenimiento:
// - Reconciliación de saldos de puntos desde el libro de acreditaciones
// - Limpieza de fotos huérfanas en el almacenamiento de blobs
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lupe-hub/lupe-evaluation-hub/config"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/external/supastorage"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/persistence/postgres"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/persistence/redis"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/scheduler"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/scheduler/jobs"

	"github.com/lupe-hub/lupe-evaluation-hub/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	logOpts := logger.DefaultOptions()
	logOpts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	log := logger.New(logOpts)

	log.Info("starting LUPE evaluation hub worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone))

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled, worker has nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL/Supabase)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// The API runs migrations; the worker only verifies they are applied.
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Verify(ctx); err != nil {
		return fmt.Errorf("migration check failed: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional, for balance cache invalidation)
	// ─────────────────────────────────────────────────────────────────────────
	var pointsCache *redis.PointsCache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   3,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		}
		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, cache invalidation disabled", logger.Err(err))
		} else {
			defer redisCache.Close()
			pointsCache = redis.NewPointsCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. BLOB STORAGE (Supabase Storage)
	// ─────────────────────────────────────────────────────────────────────────
	storageCfg := supastorage.DefaultClientConfig(cfg.Storage.BaseURL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)
	storageCfg.Timeout = cfg.Storage.RequestTimeout
	storageCfg.Logger = log
	storageClient := supastorage.NewClient(storageCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	evaluationRepo := postgres.NewEvaluationRepository(dbConn)
	extrasRepo := postgres.NewExtrasRepository(dbConn)
	pointsRepo := postgres.NewPointsRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. SCHEDULER & JOBS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	var invalidator jobs.BalanceInvalidator
	if pointsCache != nil {
		invalidator = pointsCache
	}

	rebuildCfg := jobs.DefaultRebuildPointsConfig()
	rebuildCfg.Timeout = cfg.Scheduler.JobTimeout
	rebuildJob := jobs.NewRebuildPointsJob(studentRepo, pointsRepo, invalidator, log, rebuildCfg)

	rebuildSchedule := scheduler.NewDailySchedule(
		cfg.Scheduler.RebuildPointsHour, cfg.Scheduler.RebuildPointsMinute)
	if err := sched.Register(rebuildJob, rebuildSchedule); err != nil {
		return fmt.Errorf("failed to register rebuild job: %w", err)
	}

	cleanupCfg := jobs.DefaultCleanupOrphanMediaConfig()
	cleanupCfg.GracePeriod = cfg.Scheduler.CleanupGracePeriod
	cleanupCfg.Timeout = cfg.Scheduler.JobTimeout
	cleanupCfg.DryRun = cfg.Scheduler.CleanupDryRun
	cleanupJob := jobs.NewCleanupOrphanMediaJob(storageClient, evaluationRepo, extrasRepo, log, cleanupCfg)

	cleanupSchedule := scheduler.NewIntervalSchedule(cfg.Scheduler.CleanupInterval)
	if err := sched.Register(cleanupJob, cleanupSchedule); err != nil {
		return fmt.Errorf("failed to register cleanup job: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	for _, info := range sched.ListJobs() {
		log.Info("job registered",
			logger.String("job", info.Name),
			logger.String("schedule", info.Schedule),
			logger.Time("next_run", info.NextRun))
	}

	log.Info("worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	log.Info("stopping scheduler...",
		logger.String("timeout", cfg.App.ShutdownTimeout.String()))

	stopped := make(chan struct{})
	go func() {
		_ = sched.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("shutdown completed successfully")
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("shutdown timed out, jobs may have been interrupted")
	}

	return nil
}

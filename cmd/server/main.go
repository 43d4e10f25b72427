// Package main - punto de entrada del API de evaluaciones de LUPE.
//
// La fundación registra evaluaciones de terapia ecuestre por niveles
// (Amarillo, Azul, Rojo), consulta el historial por ventanas de tiempo y
// acumula puntos por cada evaluación confirmada.
//
// La arquitectura sigue Clean Architecture y DDD:
// - Domain: reglas de negocio puras sin dependencias externas
// - Application: orquestación de casos de uso (Commands/Queries)
// - Infrastructure: repositorios, almacenamiento de fotos, event bus
// - Interface: REST API
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lupe-hub/lupe-evaluation-hub/config"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/command"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/eventhandler"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/application/query"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/evaluation"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/media"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/points"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/domain/shared"

	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/external/supastorage"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/messaging"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/persistence/postgres"
	"github.com/lupe-hub/lupe-evaluation-hub/internal/infrastructure/persistence/redis"

	httpserver "github.com/lupe-hub/lupe-evaluation-hub/internal/interface/http"

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

	log.Info("starting LUPE evaluation hub API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone))

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

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
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
		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", logger.Err(err))
			redisCache = nil
		} else {
			defer redisCache.Close()
			pointsCache = redis.NewPointsCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. BLOB STORAGE (Supabase Storage)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Storage.BaseURL == "" {
		log.Warn("STORAGE_BASE_URL not set, photo uploads will fail")
	}
	storageCfg := supastorage.DefaultClientConfig(cfg.Storage.BaseURL, cfg.Storage.ServiceKey, cfg.Storage.Bucket)
	storageCfg.Timeout = cfg.Storage.RequestTimeout
	storageCfg.Logger = log
	storageClient := supastorage.NewClient(storageCfg)

	mediaManager := media.NewManager(storageClient, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. REPOSITORIES & CATALOGS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	studentRepo := postgres.NewStudentRepository(dbConn)
	evaluationRepo := postgres.NewEvaluationRepository(dbConn)
	extrasRepo := postgres.NewExtrasRepository(dbConn)
	pointsRepo := postgres.NewPointsRepository(dbConn)

	registry := evaluation.DefaultSchemaRegistry()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...", logger.String("mode", cfg.EventBus.Mode))
	localBusCfg := messaging.DefaultInMemoryEventBusConfig()
	localBusCfg.Logger = log
	localBusCfg.AsyncMode = cfg.EventBus.AsyncMode
	localBusCfg.WorkerPoolSize = cfg.EventBus.WorkerPoolSize

	var eventBus interface {
		shared.EventPublisher
		Subscribe(shared.EventType, shared.EventHandler) error
		Close() error
	}

	if cfg.EventBus.Mode == "redis" && redisCache != nil {
		eventBus, err = messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redisCache.Client(),
			LocalBusConfig: localBusCfg,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
	} else {
		eventBus = messaging.NewInMemoryEventBus(localBusCfg)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	recordCmd := command.NewRecordEvaluationHandler(studentRepo, evaluationRepo, registry, mediaManager, eventBus, log)
	attachPhotoCmd := command.NewAttachPhotoHandler(evaluationRepo, extrasRepo, mediaManager, eventBus, log)
	updateExtrasCmd := command.NewUpdateExtrasHandler(studentRepo, extrasRepo, eventBus, log)
	changeLevelCmd := command.NewChangeLevelHandler(studentRepo, eventBus, log)

	var balanceCache query.BalanceCache
	if pointsCache != nil {
		balanceCache = pointsCache
	}

	historyQuery := query.NewGetHistoryHandler(studentRepo, evaluationRepo)
	latestQuery := query.NewGetLatestHandler(studentRepo, evaluationRepo, extrasRepo)
	pointsQuery := query.NewGetPointsHandler(studentRepo, pointsRepo, balanceCache, log)
	catalogsQuery := query.NewGetCatalogsHandler(registry)
	listQuery := query.NewListEvaluationsHandler(studentRepo, evaluationRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	accrualPolicy := buildAccrualPolicy(cfg.Points)
	accrualHandler := eventhandler.NewOnEvaluationRecordedHandler(
		evaluationRepo, pointsRepo, accrualPolicy, balanceCache, eventBus, log)
	if err := eventBus.Subscribe(accrualHandler.EventType(), accrualHandler.Handle); err != nil {
		return fmt.Errorf("failed to subscribe accrual handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. CATALOG CACHE WARM-UP
	// ─────────────────────────────────────────────────────────────────────────
	if redisCache != nil {
		catalogCache := redis.NewCatalogCache(redisCache)
		if err := catalogCache.InvalidateAll(ctx); err != nil {
			log.Warn("failed to invalidate catalog cache", logger.Err(err))
		}
		for _, dto := range catalogsQuery.All() {
			dto := dto
			if err := catalogCache.Set(ctx, &dto); err != nil {
				log.Warn("failed to warm catalog cache",
					logger.LevelName(dto.Level), logger.Err(err))
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.EnableMetrics = cfg.HTTP.EnableMetrics
	httpConfig.BearerTokens = cfg.HTTP.BearerTokens

	httpDeps := httpserver.Dependencies{
		RecordEvaluation: recordCmd,
		AttachPhoto:      attachPhotoCmd,
		UpdateExtras:     updateExtrasCmd,
		ChangeLevel:      changeLevelCmd,
		GetHistory:       historyQuery,
		GetLatest:        latestQuery,
		GetPoints:        pointsQuery,
		GetCatalogs:      catalogsQuery,
		ListEvaluations:  listQuery,
		Logger:           log,
		HealthChecker: &healthChecker{
			db:      dbConn,
			cache:   redisCache,
			storage: storageClient,
		},
	}

	server := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 13. START & GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", logger.String("address", httpConfig.Address()))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("service error", logger.Err(err))
		return err
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown...",
		logger.String("timeout", cfg.App.ShutdownTimeout.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// buildAccrualPolicy maps the configured policy name onto a domain policy.
func buildAccrualPolicy(cfg config.PointsConfig) points.AccrualPolicy {
	if cfg.Policy == "proportional" {
		return points.ScoreProportionalAccrual{Factor: cfg.ProportionalFactor}
	}
	return points.FlatAccrual{Amount: cfg.FlatAmount}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// healthChecker probes the backing services. The database is required for
// readiness; Redis and blob storage degrade gracefully, so they only show
// up in the checks map.
type healthChecker struct {
	db      *postgres.Connection
	cache   *redis.Cache
	storage *supastorage.Client
}

func (h *healthChecker) Check(ctx context.Context) httpserver.HealthStatus {
	status := httpserver.HealthStatus{
		Healthy: true,
		Ready:   true,
		Checks:  make(map[string]string),
	}

	if err := h.db.Ping(ctx); err != nil {
		status.Healthy = false
		status.Ready = false
		status.Checks["database"] = "down: " + err.Error()
		status.Message = "database unreachable"
	} else {
		status.Checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			status.Checks["redis"] = "down: " + err.Error()
		} else {
			status.Checks["redis"] = "ok"
		}
	}

	if h.storage.IsHealthy(ctx) {
		status.Checks["storage"] = "ok"
	} else {
		status.Checks["storage"] = "down"
	}

	return status
}

package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/redis/rueidis"
	"github.com/robalyx/retract/internal/database"
	"github.com/robalyx/retract/internal/metrics"
	"github.com/robalyx/retract/internal/redis"
	"github.com/robalyx/retract/internal/setup/config"
	"github.com/robalyx/retract/internal/setup/telemetry"
	"github.com/robalyx/retract/internal/storage"
	"github.com/robalyx/retract/internal/storage/file"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the database schema is behind.
var ErrPendingMigrations = errors.New("database migrations are pending, run the migrate command")

// App bundles the core dependencies shared by every command.
type App struct {
	Config        *config.Config     // Application configuration
	Logger        *zap.Logger        // Main application logger
	StorageLogger *zap.Logger        // Storage-specific logger
	Storage       storage.Backend    // Persistence backend for the moderation stores
	RedisManager  *redis.Manager     // Redis connection manager
	StatusClient  rueidis.Client     // Redis client for worker heartbeats, nil without Redis
	Metrics       *metrics.Collector // Metrics collector
	LogManager    *telemetry.Manager // Log management system
	metricsServer *metricsServer     // Prometheus HTTP server
}

// InitializeApp loads the configuration and opens every shared dependency.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	return InitializeWithConfig(ctx, cfg, serviceType, logDir)
}

// InitializeWithConfig is InitializeApp with an already loaded configuration.
func InitializeWithConfig(ctx context.Context, cfg *config.Config, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Logging system is initialized first to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug)

	logger, storageLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	backend, err := OpenStorage(ctx, &cfg.Common, storageLogger)
	if err != nil {
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	var statusClient rueidis.Client

	if cfg.Common.Redis.Enabled {
		statusClient, err = redisManager.GetClient(redis.MetricsDBIndex)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	collector := metrics.NewCollector(logger)

	var server *metricsServer

	if cfg.Common.Metrics.Enabled && serviceType == telemetry.ServiceBot {
		server, err = startMetricsServer(cfg.Common.Metrics.Port, collector, logger)
		if err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		}
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		StorageLogger: storageLogger.Named("storage"),
		Storage:       backend,
		RedisManager:  redisManager,
		StatusClient:  statusClient,
		Metrics:       collector,
		LogManager:    logManager,
		metricsServer: server,
	}, nil
}

// OpenStorage opens the configured persistence backend. Database backends
// must be fully migrated.
func OpenStorage(ctx context.Context, cfg *config.CommonConfig, logger *zap.Logger) (storage.Backend, error) {
	if cfg.Storage.Backend == "file" {
		store, err := file.NewStore(cfg.Storage.DataDir, logger)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	db, err := database.NewConnection(ctx, cfg, logger, false)
	if err != nil {
		return nil, err
	}

	pending, err := db.PendingMigrations(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	if len(pending) > 0 {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPendingMigrations, pending)
	}

	return db, nil
}

// Cleanup shuts components down in reverse initialization order. Errors are
// logged so every component gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if s.metricsServer != nil {
		if err := s.metricsServer.shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown metrics server", zap.Error(err))
		}
	}

	if err := s.Storage.Close(); err != nil {
		s.Logger.Error("Failed to close storage", zap.Error(err))
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.StorageLogger.Sync(); err != nil {
		log.Printf("Failed to sync storage logger: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

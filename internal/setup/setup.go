package setup

import (
	"context"
	"fmt"
	"log"

	aiClient "github.com/robalyx/lumi/internal/ai/client"
	"github.com/robalyx/lumi/internal/database"
	"github.com/robalyx/lumi/internal/redis"
	"github.com/robalyx/lumi/internal/setup/config"
	"github.com/robalyx/lumi/internal/setup/telemetry"
	"go.uber.org/zap"
)

// Version is reported to the tracing backend.
var Version = "dev"

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Holder     // Live application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	AIClient     *aiClient.AIClient // Completion provider client, only set for the bot
	RedisManager *redis.Manager     // Redis connection manager, nil when Redis is disabled
	LogManager   *telemetry.Manager // Log management system
	tracing      bool
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	paths, err := config.SearchPaths()
	if err != nil {
		return nil, err
	}

	cfg, configDir, err := config.LoadConfigFrom(paths)
	if err != nil {
		return nil, err
	}

	// Tracing must be configured before any instrumented component starts
	tracing := telemetry.SetupTracing(&cfg.Common.Uptrace, serviceType, Version)

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(ctx, serviceType, logDir, &cfg.Common.Debug, &cfg.Common.Loki, tracing)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded config",
		zap.String("dir", configDir),
		zap.String("service", serviceType.String()),
		zap.Bool("tracing", tracing))

	holder := config.NewHolder(cfg, configDir, paths, logger)

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger, tracing)
	if err != nil {
		return nil, err
	}

	var redisManager *redis.Manager
	if cfg.Common.Redis.Enabled {
		redisManager = redis.NewManager(&cfg.Common.Redis, logger)
	}

	var aiCli *aiClient.AIClient
	if serviceType == telemetry.ServiceBot {
		aiCli, err = aiClient.NewClient(&cfg.Common.OpenAI, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &App{
		Config:       holder,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		AIClient:     aiCli,
		RedisManager: redisManager,
		LogManager:   logManager,
		tracing:      tracing,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	s.Config.Close()

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	if s.RedisManager != nil {
		s.RedisManager.Close()
	}

	if s.tracing {
		if err := telemetry.ShutdownTracing(ctx); err != nil {
			log.Printf("Failed to shutdown tracing: %v", err)
		}
	}

	// Stop telemetry manager last to flush Loki logs
	s.LogManager.Stop()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(
	ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger, tracing bool,
) (database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, database.Options{Tracing: tracing})
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db.DB())
	if err := migrator.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if len(ms.Unapplied()) == 0 {
		return db, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string

	_, _ = fmt.Scanln(&response)

	if response != "y" && response != "Y" {
		_ = db.Close()
		log.Fatalf("Closing program due to incomplete migrations")
	}

	if err := database.Migrate(ctx, db.DB(), dbLogger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

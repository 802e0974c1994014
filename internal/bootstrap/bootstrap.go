package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/yigit/courseenroll/internal/app/controllers"
	appMigrations "github.com/yigit/courseenroll/internal/app/migrations"
	appRepos "github.com/yigit/courseenroll/internal/app/repositories"
	"github.com/yigit/courseenroll/internal/app/repositories/memory"
	appRoutes "github.com/yigit/courseenroll/internal/app/routes"
	appServices "github.com/yigit/courseenroll/internal/app/services"
	"github.com/yigit/courseenroll/internal/config"
	"github.com/yigit/courseenroll/internal/db"
	"github.com/yigit/courseenroll/internal/jobs"
	appMiddleware "github.com/yigit/courseenroll/internal/middleware"
	"github.com/yigit/courseenroll/internal/pkg/cache"
	"github.com/yigit/courseenroll/internal/pkg/helpers"
	"github.com/yigit/courseenroll/internal/pkg/logger"
	"github.com/yigit/courseenroll/internal/seed"
)

// Storage is the selected storage backend together with its connection, if any
type Storage struct {
	Repos    *appRepos.Repositories
	Database *db.PostgresDB // nil for the memory driver
}

// Close releases the database connection pool
func (s *Storage) Close() {
	if s.Database != nil {
		s.Database.Close()
	}
}

// Dependencies holds all the application dependencies
type Dependencies struct {
	Services             *appServices.Services
	EnrollmentController *appControllers.EnrollmentController
	CatalogController    *appControllers.CatalogController
	ScheduleCache        *cache.RedisScheduleCache // nil when Redis is disabled
	Scheduler            *jobs.Scheduler           // nil when the audit job is disabled
	Logger               zerolog.Logger
}

// Close releases the resources owned by the dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	var errs error
	if d.Scheduler != nil {
		d.Scheduler.Stop(ctx)
	}
	if d.ScheduleCache != nil {
		if err := d.ScheduleCache.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}
	return errs
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger // Get the configured global logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupStorage opens the configured storage backend. For PostgreSQL it runs
// migrations first; the demo dataset is loaded when storage.seed is set.
func SetupStorage(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		if cfg.Storage.Seed {
			seed.LoadIntoMemory(store, seed.DefaultData(time.Now()))
		}
		lgr.Info().Bool("seeded", cfg.Storage.Seed).Msg("Using in-memory storage")
		return &Storage{Repos: store.Repositories()}, nil

	case config.StorageDriverPostgres:
		return setupDatabase(ctx, cfg, lgr)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// setupDatabase establishes the database connection and runs migrations.
func setupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Storage, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	migrationsDir := cfg.Database.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		database.Close()
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	migrator := appMigrations.NewMigrator(database.Pool, lgr)
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		database.Close()
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	if cfg.Storage.Seed {
		if err := seed.CreateDefaultData(ctx, database.Pool, seed.DefaultData(time.Now()), lgr); err != nil {
			// Log the error but don't fail the startup
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return &Storage{
		Repos:    appRepos.NewRepositories(database),
		Database: database,
	}, nil
}

// BuildDependencies initializes services, controllers and background jobs.
func BuildDependencies(ctx context.Context, cfg *config.Config, storage *Storage, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	var scheduleCache appServices.ScheduleCache = appServices.NoopScheduleCache{}
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisScheduleCache(ctx, cache.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			ScheduleTTL: helpers.ParseDuration(cfg.Redis.ScheduleTTL, 5*time.Minute),
		})
		if err != nil {
			lgr.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
			return nil, err
		}
		deps.ScheduleCache = redisCache
		scheduleCache = redisCache
		lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Schedule cache enabled")
	}

	deps.Services = &appServices.Services{
		Enrollment: appServices.NewEnrollmentService(storage.Repos.Enrollments, scheduleCache, appServices.EnrollmentConfig{
			MaxAttempts:     cfg.Enrollment.MaxAttempts,
			InitialInterval: helpers.ParseDuration(cfg.Enrollment.RetryInitialInterval, 20*time.Millisecond),
			MaxInterval:     helpers.ParseDuration(cfg.Enrollment.RetryMaxInterval, 200*time.Millisecond),
		}),
		Catalog: appServices.NewCatalogService(storage.Repos.Catalog, scheduleCache),
		Audit:   appServices.NewQuotaAuditService(storage.Repos.Audit),
	}

	if cfg.Audit.Enabled {
		scheduler, err := jobs.NewScheduler(deps.Services.Audit, cfg.Audit.Spec)
		if err != nil {
			_ = deps.Close(ctx)
			return nil, err
		}
		deps.Scheduler = scheduler
	}

	deps.EnrollmentController = appControllers.NewEnrollmentController(deps.Services.Enrollment)
	deps.CatalogController = appControllers.NewCatalogController(deps.Services.Catalog)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(appMiddleware.RequestLogger(lgr), gin.Recovery())

	appRoutes.SetupRouter(router,
		deps.EnrollmentController,
		deps.CatalogController,
	)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/vaxportal/internal/app/controllers"
	appMigrations "github.com/yigit/vaxportal/internal/app/migrations"
	appRepos "github.com/yigit/vaxportal/internal/app/repositories"
	appRoutes "github.com/yigit/vaxportal/internal/app/routes"
	appServices "github.com/yigit/vaxportal/internal/app/services"
	"github.com/yigit/vaxportal/internal/config"
	"github.com/yigit/vaxportal/internal/db"
	appMiddleware "github.com/yigit/vaxportal/internal/middleware"
	pkgAuth "github.com/yigit/vaxportal/internal/pkg/auth"
	"github.com/yigit/vaxportal/internal/pkg/helpers"
	"github.com/yigit/vaxportal/internal/pkg/logger"
	"github.com/yigit/vaxportal/internal/pkg/messaging"
	"github.com/yigit/vaxportal/internal/pkg/metrics"
	"github.com/yigit/vaxportal/internal/pkg/validation"
	"github.com/yigit/vaxportal/internal/pkg/websocket"
	"github.com/yigit/vaxportal/internal/seed"
)

// DefaultConfigPath is used when no --config flag is given
const DefaultConfigPath = "configs/config.yaml"

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Database *db.PostgresDB
	Repos    *appRepos.Repositories

	JWTService *pkgAuth.JWTService
	Calendar   appServices.Calendar
	Hub        *websocket.Hub
	Producer   *messaging.Producer // nil when NATS is not configured

	AuthService      appServices.AuthService
	StudentService   appServices.StudentService
	DriveService     appServices.DriveService
	RecordService    appServices.RecordService
	DashboardService appServices.DashboardService
	ReportService    appServices.ReportService

	Controllers     appRoutes.Controllers
	AuthMiddleware  *appMiddleware.AuthMiddleware
	LoginLimiter    *appMiddleware.IPRateLimiter
	ActivityHandler *websocket.Handler

	stopHub context.CancelFunc
}

// LoadConfigAndSetupLogger loads .env, the YAML config and the environment,
// then configures the global logger from the result.
func LoadConfigAndSetupLogger(ctx context.Context, configPath string) (*config.Config, zerolog.Logger, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg("Failed to read .env file")
	}

	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg, err := config.LoadConfig(ctx, configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	lgr := logger.Configure(logger.ConfigFromStrings(cfg.Logging.Level, cfg.Logging.Format))
	lgr.Info().Str("logLevel", cfg.Logging.Level).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")

	if err := validation.Register(); err != nil {
		return nil, lgr, fmt.Errorf("failed to register validation rules: %w", err)
	}
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*db.PostgresDB, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(ctx, cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	if err := RunMigrations(ctx, cfg, database, lgr); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// RunMigrations applies every pending file in the configured migrations directory
func RunMigrations(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) error {
	migrationsDir := cfg.App.MigrationsDir
	if _, err := os.Stat(migrationsDir); err != nil {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	lgr.Info().Str("path", migrationsDir).Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(database.Pool, logger.WithComponent("migrator"))
	if err := migrator.MigrateFromDirectory(ctx, migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")
	return nil
}

// BuildDependencies initializes repositories, services and controllers, and
// starts the activity hub. Call Close to stop it again.
func BuildDependencies(ctx context.Context, cfg *config.Config, database *db.PostgresDB, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   lgr,
		Database: database,
		Repos:    appRepos.NewRepositories(database.Pool),
		Calendar: appServices.Calendar{Clock: time.Now, Location: cfg.Location()},
	}

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 24*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	deps.stopHub = stopHub
	deps.Hub = websocket.NewHub(logger.WithComponent("activity-hub"))
	go deps.Hub.Run(hubCtx)
	deps.ActivityHandler = websocket.NewHandler(deps.Hub, cfg.Server.AllowedOrigins, logger.WithComponent("activity-ws"))

	publishers := appServices.Publishers{deps.Hub}
	if cfg.NATS.URL != "" {
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, logger.WithComponent("nats"))
		if err != nil {
			stopHub()
			return nil, err
		}
		deps.Producer = producer
		publishers = append(publishers, producer)
	}

	rules := appServices.DriveRules{
		LeadDays:           cfg.App.DriveLeadDays,
		UpcomingWindowDays: cfg.App.UpcomingWindowDays,
	}
	repos := deps.Repos

	deps.AuthService = appServices.NewAuthService(database, repos.UserRepository, repos.ActivityRepository,
		publishers, deps.JWTService, logger.WithComponent("auth"))
	deps.StudentService = appServices.NewStudentService(database, repos.StudentRepository, repos.RecordRepository,
		repos.ActivityRepository, publishers, deps.Calendar, logger.WithComponent("students"))
	deps.DriveService = appServices.NewDriveService(database, repos.DriveRepository, repos.RecordRepository,
		repos.ActivityRepository, publishers, deps.Calendar, rules, logger.WithComponent("drives"))
	deps.RecordService = appServices.NewRecordService(database, repos.StudentRepository, repos.DriveRepository,
		repos.RecordRepository, repos.ActivityRepository, publishers, deps.Calendar, logger.WithComponent("records"))
	deps.DashboardService = appServices.NewDashboardService(repos.ReportRepository, repos.DriveRepository,
		repos.ActivityRepository, deps.Calendar, rules)
	deps.ReportService = appServices.NewReportService(repos.ReportRepository)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)
	deps.LoginLimiter = appMiddleware.NewIPRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)

	deps.Controllers = appRoutes.Controllers{
		Auth:      appControllers.NewAuthController(deps.AuthService, logger.WithComponent("auth-controller")),
		Student:   appControllers.NewStudentController(deps.StudentService),
		Drive:     appControllers.NewDriveController(deps.DriveService),
		Record:    appControllers.NewRecordController(deps.RecordService),
		Dashboard: appControllers.NewDashboardController(deps.DashboardService),
		Report:    appControllers.NewReportController(deps.ReportService, deps.Calendar.Now),
	}

	return deps, nil
}

// SeedData creates the default administrator and, if configured, sample data
func (d *Dependencies) SeedData(ctx context.Context) error {
	return seed.CreateDefaultData(ctx, seed.Services{
		Auth:    d.AuthService,
		Student: d.StudentService,
		Drive:   d.DriveService,
	}, seed.Options{
		AdminPassword: d.Config.App.DefaultAdminPassword,
		SampleData:    d.Config.App.SeedSampleData,
		Today:         d.Calendar.Today(),
		LeadDays:      d.Config.App.DriveLeadDays,
	}, logger.WithComponent("seed"))
}

// SettlePastDrives completes drives whose date passed while the server was down
func (d *Dependencies) SettlePastDrives(ctx context.Context) {
	settled, err := d.DriveService.SettlePastDrives(ctx)
	if err != nil {
		d.Logger.Error().Err(err).Msg("Failed to settle past drives")
		return
	}
	if settled > 0 {
		d.Logger.Info().Int64("drives", settled).Msg("Past drives marked completed")
	}
}

// Close stops the activity hub and releases the NATS connection
func (d *Dependencies) Close() {
	if d.stopHub != nil {
		d.stopHub()
	}
	if d.Producer != nil {
		if err := d.Producer.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("NATS producer close error")
		}
	}
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.New()
	router.Use(
		appMiddleware.Recovery(lgr),
		appMiddleware.RequestLogger(logger.WithComponent("http")),
		appMiddleware.CORS(cfg.Server.AllowedOrigins),
		metrics.Middleware(),
	)

	appRoutes.SetupSwagger(router)
	router.GET("/metrics", metrics.Handler())
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := deps.Database.Pool.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "activityClients": deps.Hub.ClientsCount()})
	})

	appRoutes.SetupRouter(router,
		deps.Controllers,
		deps.AuthMiddleware,
		deps.LoginLimiter.Middleware(),
		deps.ActivityHandler.HandleConnection,
	)

	return router
}

package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"desorientado_backend/internal/config"
	"desorientado_backend/internal/controller"
	"desorientado_backend/internal/repository"
	"desorientado_backend/internal/service"
	"desorientado_backend/internal/util"
	"desorientado_backend/pkg/configwatcher"
	"desorientado_backend/pkg/database"
	"desorientado_backend/pkg/logger"
	"desorientado_backend/pkg/messaging"
	"desorientado_backend/pkg/monitoring"
	"desorientado_backend/pkg/security"
	"desorientado_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConfigDir is where the config file is read from and watched.
const ConfigDir = "configs"

const pendingSyncInterval = time.Minute

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services        *services
	limiter         *security.RateLimiter
	publisher       *messaging.Publisher
	tracer          *sdktrace.TracerProvider
	stopWatch       context.CancelFunc
	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	progress      *repository.ProgressRepository
	progressCache *repository.ProgressCache
	blobCache     *repository.BlobCache
	quizAttempt   *repository.QuizAttemptRepository
	activity      *repository.ActivityRepository
	lesson        *repository.LessonRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	progress    *service.ProgressService
	activity    *service.ActivityService
	codeRunner  *service.CodeRunnerService
	leaderboard *service.LeaderboardService
	dashboard   *service.DashboardService
	export      *service.ExportService
	lesson      *service.LessonService
	sync        *service.SyncScheduler
}

type controllers struct {
	auth        *controller.AuthController
	progress    *controller.ProgressController
	leaderboard *controller.LeaderboardController
	dashboard   *controller.DashboardController
	admin       *controller.AdminController
	code        *controller.CodeController
	lesson      *controller.LessonController
	health      *controller.HealthController
}

// RegisterConfigCallback adds a hook run with every reloaded config.
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		progress:      repository.NewProgressRepository(db),
		progressCache: repository.NewProgressCache(rdb),
		blobCache:     repository.NewBlobCache(rdb),
		quizAttempt:   repository.NewQuizAttemptRepository(db),
		activity:      repository.NewActivityRepository(db),
		lesson:        repository.NewLessonRepository(db),
	}
}

// activitySinks builds the sinks named by activity.sink. A broker that
// cannot be reached falls back to the database sink.
func (a *App) activitySinks(repos *repositories) []service.ActivitySink {
	cfg := a.Config.Activity
	var sinks []service.ActivitySink

	wantDB := cfg.Sink != util.SinkAMQP
	if cfg.Sink == util.SinkAMQP || cfg.Sink == util.SinkBoth {
		pub, err := messaging.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Log.Error("Activity broker unavailable, logging activity to the database", zap.Error(err))
			wantDB = true
		} else {
			a.publisher = pub
			sinks = append(sinks, service.NewAMQPActivitySink(pub))
		}
	}
	if wantDB {
		sinks = append(sinks, service.NewDBActivitySink(repos.activity))
	}
	return sinks
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)

	s.activity = service.NewActivityService(cfg.Activity.BufferSize, a.activitySinks(repos)...)
	s.progress = service.NewProgressService(
		repos.progress,
		repos.progressCache,
		repos.quizAttempt,
		repos.lesson,
		s.activity,
		cfg.Review.Policy(),
	)
	s.sync = service.NewSyncScheduler(s.progress, pendingSyncInterval)

	s.codeRunner = service.NewCodeRunnerService(cfg.Judge0)
	s.leaderboard = service.NewLeaderboardService(repos.progress, repos.user, repos.blobCache)
	s.dashboard = service.NewDashboardService(repos.user, repos.progress, repos.activity, repos.progressCache)
	s.export = service.NewExportService(repos.progress, s.storage)
	s.lesson = service.NewLessonService(repos.lesson)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	loc := a.Config.Server.Location()

	db := controller.PingFunc(func(ctx context.Context) error {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	cache := controller.PingFunc(func(ctx context.Context) error {
		return a.Redis.Ping(ctx).Err()
	})

	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		progress:    controller.NewProgressController(s.progress, loc),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		dashboard:   controller.NewDashboardController(s.dashboard, loc),
		admin:       controller.NewAdminController(s.progress, s.export),
		code:        controller.NewCodeController(s.codeRunner),
		lesson:      controller.NewLessonController(s.lesson),
		health:      controller.NewHealthController(db, cache),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerConfigCallbacks(s *services) {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		s.progress.SetPolicy(cfg.Review.Policy())
		logger.Log.Info("Review policy updated",
			zap.Float64("low_accuracy", cfg.Review.LowAccuracy),
			zap.Ints("intervals", cfg.Review.Intervals))
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.limiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	})
}

func (a *App) startBackgroundTasks(s *services) {
	s.activity.Start()

	if err := s.sync.Start(); err != nil {
		logger.Log.Error("Failed to schedule pending progress sync", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatch = cancel
	go func() {
		path := filepath.Join(ConfigDir, "config.yaml")
		if err := configwatcher.WatchConfig(ctx, path, configwatcher.DefaultDebounce, a.applyConfig); err != nil {
			logger.Log.Error("Config watcher stopped", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	log := logger.Named("app")
	log.Info("Logger initialized", zap.String("mode", cfg.Server.Mode))

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("Database migration failed", zap.Error(err))
		}
		log.Info("Database migrated")
	}

	app := &App{Config: cfg, DB: db}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			log.Error("Failed to initialize tracing, continuing without it", zap.Error(err))
			cfg.Tracing.Enabled = false
		} else {
			app.tracer = tp
		}
	}

	repos := app.initRepositories(db, rdb)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services)

	if minio, ok := services.storage.Provider.(*service.MinioStorageProvider); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := minio.EnsureBucket(ctx); err != nil {
			log.Error("Failed to ensure export bucket", zap.String("bucket", minio.Bucket), zap.Error(err))
		}
		cancel()
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.registerConfigCallbacks(services)
	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.shutdown(ctx)
	logger.Log.Info("Server exiting")
}

// shutdown stops the background work after the HTTP server has drained,
// so the activity buffer sees no new events while it empties.
func (a *App) shutdown(ctx context.Context) {
	if a.stopWatch != nil {
		a.stopWatch()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}

	if s := a.services; s != nil {
		s.sync.Stop()
		if err := s.activity.Stop(ctx); err != nil {
			logger.Log.Warn("Activity buffer not fully drained", zap.Error(err))
		}
		// one last attempt for records written only to the local copy
		if n, err := s.progress.SyncPending(ctx); err != nil {
			logger.Log.Warn("Final pending sync failed", zap.Error(err))
		} else if n > 0 {
			logger.Log.Info("Final pending sync", zap.Int("records", n))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Log.Warn("Failed to close activity publisher", zap.Error(err))
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = logger.Log.Sync()
}

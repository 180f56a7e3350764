package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"yoi_portal_backend/internal/config"
	"yoi_portal_backend/internal/controller"
	"yoi_portal_backend/internal/middleware"
	"yoi_portal_backend/internal/repository"
	"yoi_portal_backend/internal/service"
	"yoi_portal_backend/pkg/configwatcher"
	"yoi_portal_backend/pkg/database"
	"yoi_portal_backend/pkg/logger"
	"yoi_portal_backend/pkg/monitoring"
	"yoi_portal_backend/pkg/security"
	"yoi_portal_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.Limiter
	scheduler       *cron.Cron
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	module       *repository.ModuleRepository
	sequence     *repository.SequenceRepository
	progress     *repository.ProgressRepository
	submission   *repository.SubmissionRepository
	response     *repository.InstructorResponseRepository
	notification *repository.NotificationRepository
	goal         *repository.GoalRepository
	reflection   *repository.ReflectionRepository
}

type services struct {
	storage      *service.StorageService
	uploads      *service.UploadService
	access       *service.AccessService
	notification *service.NotificationService
	progress     *service.ProgressService
	review       *service.ReviewService
	goal         *service.GoalService
	reflection   *service.ReflectionService
	user         *service.UserService
	admin        *service.AdminService
}

type controllers struct {
	module       *controller.ModuleController
	review       *controller.ReviewController
	admin        *controller.AdminController
	notification *controller.NotificationController
	goal         *controller.GoalController
	reflection   *controller.ReflectionController
	user         *controller.UserController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		module:       repository.NewModuleRepository(db),
		sequence:     repository.NewSequenceRepository(db),
		progress:     repository.NewProgressRepository(db),
		submission:   repository.NewSubmissionRepository(db),
		response:     repository.NewInstructorResponseRepository(db),
		notification: repository.NewNotificationRepository(db),
		goal:         repository.NewGoalRepository(db),
		reflection:   repository.NewReflectionRepository(db),
	}
}

func (a *App) initServices(cfg *config.Config, repos *repositories, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.uploads = service.NewUploadService(&cfg.Upload, s.storage)
	s.access = service.NewAccessService(repos.user)

	s.notification = service.NewNotificationService(
		cfg.Notification,
		repos.notification,
		repos.user,
		repos.module,
		repos.sequence,
		repos.submission,
	)

	s.progress = service.NewProgressService(
		db,
		repos.progress,
		repos.module,
		repos.sequence,
		repos.submission,
		s.uploads,
		s.notification,
	)

	s.review = service.NewReviewService(
		db,
		rdb,
		s.access,
		repos.progress,
		repos.sequence,
		repos.submission,
		repos.response,
		s.notification,
	)

	s.goal = service.NewGoalService(repos.goal, s.progress)
	s.reflection = service.NewReflectionService(repos.reflection, repos.sequence, s.uploads)
	s.user = service.NewUserService(repos.user, s.uploads)
	s.admin = service.NewAdminService(repos.user, repos.module, repos.sequence, repos.submission)

	return s
}

func (a *App) initControllers(cfg *config.Config, s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		module:       controller.NewModuleController(s.progress, s.review, s.uploads),
		review:       controller.NewReviewController(s.review, s.uploads),
		admin:        controller.NewAdminController(s.admin, s.user),
		notification: controller.NewNotificationController(s.notification),
		goal:         controller.NewGoalController(s.goal),
		reflection:   controller.NewReflectionController(s.reflection, s.uploads),
		user:         controller.NewUserController(s.user, s.access, s.uploads, middleware.DefaultGatePrefixes, cfg.Server.WebRoot),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	a.limiter = security.NewLimiter(cfg.RateLimit.MaxRequests, window)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时发送待审核提交提醒
func (a *App) startBackgroundTasks(cfg *config.Config, s *services) {
	if !cfg.Scheduler.Enabled || cfg.Scheduler.DigestCron == "" {
		return
	}

	a.scheduler = cron.New()
	staleAfter := cfg.Scheduler.StaleAfter
	_, err := a.scheduler.AddFunc(cfg.Scheduler.DigestCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		count, err := s.notification.ReviewDigest(ctx, staleAfter)
		if err != nil {
			logger.Log.Error("Review digest failed", zap.Error(err))
			return
		}
		logger.Log.Info("Review digest finished", zap.Int64("stale", count))
	})
	if err != nil {
		logger.Log.Error("Invalid digest cron expression",
			zap.String("cron", cfg.Scheduler.DigestCron),
			zap.Error(err))
		a.scheduler = nil
		return
	}
	a.scheduler.Start()
}

// onConfigReload 热更新通知渠道与限流配置
func (a *App) onConfigReload(cfg *config.Config) {
	if a.services != nil {
		a.services.notification.UpdateConfig(cfg.Notification)
	}
	if a.limiter != nil {
		a.limiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	}
}

// New 使用已建立的数据库和 redis 连接组装应用
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	if err := registerValidators(); err != nil {
		logger.Log.Error("Failed to register validators", zap.Error(err))
	}

	repos := app.initRepositories(db)
	services := app.initServices(cfg, repos, db, rdb)
	controllers := app.initControllers(cfg, services, db, rdb)
	app.services = services

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, services, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(app.onConfigReload)
	return app
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.Server.Mode == "debug" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	// 监控初始化
	monitoring.Init()

	app := New(cfg, db, rdb)
	app.ConfigDir = configDir

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("yoi-portal", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.startBackgroundTasks(cfg, app.services)

	return app
}

func (a *App) watchConfig(ctx context.Context) {
	if a.ConfigDir == "" {
		return
	}
	path := filepath.Join(a.ConfigDir, "config.yaml")
	go func() {
		err := configwatcher.WatchConfig(ctx, path, func(cfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(cfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher stopped", zap.String("path", path), zap.Error(err))
		}
	}()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	a.watchConfig(watchCtx)

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	stopWatch()
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	// 等待后台通知发送完成
	if a.services != nil {
		a.services.notification.Wait()
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}

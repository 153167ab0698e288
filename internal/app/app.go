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
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/controller"
	"ttrac_backend/internal/repository"
	"ttrac_backend/internal/service"
	"ttrac_backend/internal/util"
	"ttrac_backend/pkg/configwatcher"
	"ttrac_backend/pkg/database"
	"ttrac_backend/pkg/logger"
	"ttrac_backend/pkg/monitoring"
	"ttrac_backend/pkg/security"
	"ttrac_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const ConfigDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	shutdownHooks   []func(context.Context)
}

type repositories struct {
	profile      *repository.ProfileRepository
	course       *repository.CourseRepository
	enrollment   *repository.EnrollmentRepository
	assignment   *repository.AssignmentRepository
	quiz         *repository.QuizRepository
	notification *repository.NotificationRepository
}

type services struct {
	classifier   *service.Classifier
	hub          *service.NotificationHub
	notification *service.NotificationService
	generator    *service.ActivityGenerator
	maintenance  *service.MaintenanceService
	access       *service.CourseAccess
	auth         *service.AuthService
	storage      *service.StorageService
	course       *service.CourseService
	enrollment   *service.EnrollmentService
	assignment   *service.AssignmentService
	quiz         *service.QuizService
}

type controllers struct {
	auth         *controller.AuthController
	notification *controller.NotificationController
	course       *controller.CourseController
	enrollment   *controller.EnrollmentController
	assignment   *controller.AssignmentController
	quiz         *controller.QuizController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		profile:      repository.NewProfileRepository(db),
		course:       repository.NewCourseRepository(db),
		enrollment:   repository.NewEnrollmentRepository(db),
		assignment:   repository.NewAssignmentRepository(db),
		quiz:         repository.NewQuizRepository(db),
		notification: repository.NewNotificationRepository(db, rdb, cfg.Notifications.UnreadCacheTTL),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.classifier = service.NewClassifier(cfg.Notifications.DummyKeywords)
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.classifier.SetKeywords(newCfg.Notifications.DummyKeywords)
		logger.Log.Info("Dummy keywords reloaded", zap.Strings("keywords", s.classifier.Keywords()))
	})

	s.hub = service.NewNotificationHub(rdb, repos.notification, s.classifier)
	go s.hub.Run()

	s.notification = service.NewNotificationService(repos.notification, s.classifier, s.hub)
	s.access = service.NewCourseAccess(repos.course, repos.enrollment)
	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.profile, cfg)
	s.course = service.NewCourseService(repos.course, s.access, s.storage, s.notification)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, s.access, repos.profile, s.notification)
	s.assignment = service.NewAssignmentService(repos.assignment, s.access, s.notification)
	s.quiz = service.NewQuizService(repos.quiz, s.access, s.notification)
	s.generator = service.NewActivityGenerator(
		repos.course,
		repos.assignment,
		repos.quiz,
		repos.enrollment,
		repos.profile,
		s.notification,
		cfg.Notifications.GenerateLimit,
	)
	s.maintenance = service.NewMaintenanceService(s.notification, s.generator, s.quiz)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		notification: controller.NewNotificationController(s.notification, s.generator, s.hub),
		course:       controller.NewCourseController(s.course),
		enrollment:   controller.NewEnrollmentController(s.enrollment),
		assignment:   controller.NewAssignmentController(s.assignment),
		quiz:         controller.NewQuizController(s.quiz),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// every 周期执行任务，interval<=0 时不启动
func every(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		logger.Log.Info("Background task disabled", zap.String("task", name))
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					logger.Log.Error("Background task failed", zap.String("task", name), zap.Error(err))
				}
			}
		}
	}()
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services, cfg *config.Config) {
	every(ctx, "generate-notifications", cfg.Notifications.GenerateInterval, func(ctx context.Context) error {
		res, err := s.generator.GenerateAll(ctx)
		if res.Total() > 0 {
			logger.Log.Info("Activity notifications generated",
				zap.Int("submissions", res.Submissions),
				zap.Int("attempts", res.Attempts),
				zap.Int("enrollments", res.Enrollments),
			)
		}
		return err
	})

	every(ctx, "purge-read-notifications", 24*time.Hour, func(ctx context.Context) error {
		if cfg.Notifications.PurgeAfter <= 0 {
			return nil
		}
		_, err := s.maintenance.PurgeRead(ctx, service.MaintenanceOptions{OlderThan: cfg.Notifications.PurgeAfter})
		return err
	})

	go func() {
		err := configwatcher.WatchConfig(ctx, filepath.Join(ConfigDir, "config.yaml"), func(newCfg *config.Config) {
			for _, cb := range a.configCallbacks {
				cb(newCfg)
			}
		})
		if err != nil {
			logger.Log.Warn("Config watcher not started", zap.Error(err))
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，需要 -migrate 显式开启
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.shutdownHooks = append(app.shutdownHooks, func(ctx context.Context) {
			if err := tp.Shutdown(ctx); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		})
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a.startBackgroundTasks(ctx, a.services, a.Config)

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

	stop()
	if a.services != nil && a.services.hub != nil {
		a.services.hub.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, hook := range a.shutdownHooks {
		hook(shutdownCtx)
	}

	logger.Log.Info("Server exiting")
}

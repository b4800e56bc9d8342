package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/suteetoe/opshub/gomicro/config"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/jwtutil"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/metrics"
	gomiddleware "github.com/suteetoe/opshub/gomicro/middleware"
	"github.com/suteetoe/opshub/services/opshub-service/internal/cache"
	"github.com/suteetoe/opshub/services/opshub-service/internal/handler"
	"github.com/suteetoe/opshub/services/opshub-service/internal/middleware"
	"github.com/suteetoe/opshub/services/opshub-service/internal/model"
	"github.com/suteetoe/opshub/services/opshub-service/internal/notification"
	"github.com/suteetoe/opshub/services/opshub-service/internal/repository"
	"github.com/suteetoe/opshub/services/opshub-service/internal/scheduler"
	"github.com/suteetoe/opshub/services/opshub-service/internal/service"
	"github.com/suteetoe/opshub/services/opshub-service/prometheus"
	"go.uber.org/zap"
)

const serviceName = "opshub-service"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()
	log.Info("Starting opshub service...", cfg.LogConfig()...)

	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	prometheus.InitMetrics(cfg)
	httpMetrics := metrics.NewHTTPMetrics(serviceName)

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(append(identity.Models(), model.All()...)...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.DB.Host),
		zap.String("db_name", cfg.DB.DBName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identityStore := identity.NewStore(db)
	permissionService := service.NewPermissionService(repository.NewPermissionRepository(db))
	if err := permissionService.SeedDefaults(ctx); err != nil {
		log.Fatal("Failed to seed role permissions", zap.Error(err))
	}

	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}

	var resultCache cache.Cache = cache.NewMemoryCache()
	var redisOpt asynq.RedisClientOpt
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		resultCache = cache.NewRedisCache(client, serviceName+":")
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		redisOpt = asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	} else {
		log.Warn("REDIS_ADDR not set, using in-process cache")
	}

	var sender notification.Sender = notification.NewLogSender(log)
	if cfg.Email.ResendAPIKey != "" {
		sender = notification.NewEmailSender(cfg.Email.ResendAPIKey, cfg.Email.FromAddress)
	}

	var dispatcher notification.Dispatcher = notification.NewAsyncDispatcher(sender)
	if cfg.Queue.Enabled && cfg.Redis.Enabled() {
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()
		dispatcher = notification.NewQueueDispatcher(queueClient)

		worker := notification.NewWorker(redisOpt, cfg.Queue.Concurrency, sender, log)
		if err := worker.Start(); err != nil {
			log.Fatal("Failed to start notification worker", zap.Error(err))
		}
		defer worker.Shutdown()
	} else if cfg.Queue.Enabled {
		log.Warn("QUEUE_ENABLED requires REDIS_ADDR, sending notifications in process")
	}

	// Services
	projectRepo := repository.NewProjectRepository(db)
	bookingService := service.NewBookingService(repository.NewBookingRepository(db), identityStore)
	projectService := service.NewProjectService(projectRepo)
	projectAssignmentService := service.NewProjectAssignmentService(repository.NewProjectAssignmentRepository(db), projectRepo)
	assignmentService := service.NewAssignmentService(repository.NewAssignmentRepository(db), identityStore)
	assignmentRequestService := service.NewAssignmentRequestService(repository.NewAssignmentRequestRepository(db), identityStore, dispatcher)
	wbsService := service.NewWbsService(repository.NewWbsRepository(db))
	costRateService := service.NewCostRateService(repository.NewCostRateRepository(db), identityStore)
	calendarService := service.NewCalendarService(repository.NewCalendarRepository(db), resultCache, cfg.Cache.WorkingDaysTTL)
	customFieldService := service.NewCustomFieldService(repository.NewCustomFieldRepository(db))
	archiveService := service.NewArchiveService(repository.NewArchiveRepository(db))

	jobs, err := scheduler.New(scheduler.Config{
		NoShowSweepSpec:   cfg.Scheduler.NoShowSweepSpec,
		GaugeRefreshSpec:  cfg.Scheduler.GaugeRefreshSpec,
		NoShowGracePeriod: cfg.Scheduler.NoShowGracePeriod,
	}, bookingService, log)
	if err != nil {
		log.Fatal("Failed to configure scheduler", zap.Error(err))
	}
	jobs.Start()

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(gomiddleware.RequestIDMiddleware())
	e.Use(httpMetrics.Middleware())
	e.Use(logger.Middleware())

	e.GET("/health", handler.NewHealthHandler(serviceName, checks).Health)
	e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))

	api := e.Group("/api")
	api.Use(gomiddleware.JWTAuthMiddleware(jwtUtil, prometheus.AuthHooks()))

	// Booking and assignment endpoints take userId and tenantId as query parameters
	handler.NewBookingHandler(bookingService).Register(api)
	handler.NewAssignmentHandler(assignmentService).Register(api)

	tenant := api.Group("")
	tenant.Use(middleware.RequireTenantContext)

	gate := service.NewPermissionGate(identityStore, permissionService)
	router := handler.Router{
		Group: tenant,
		Permission: func(resource, action string) echo.MiddlewareFunc {
			return middleware.RequirePermission(gate, resource, action)
		},
	}

	handler.NewPermissionHandler(permissionService, identityStore).Register(router)
	handler.NewProjectHandler(projectService, identityStore).Register(router)
	handler.NewProjectAssignmentHandler(projectAssignmentService, identityStore).Register(router)
	handler.NewAssignmentRequestHandler(assignmentRequestService, identityStore).Register(router)
	handler.NewWbsHandler(wbsService, identityStore).Register(router)
	handler.NewCostRateHandler(costRateService, identityStore).Register(router)
	handler.NewCalendarHandler(calendarService, identityStore).Register(router)
	handler.NewCustomFieldHandler(customFieldService, identityStore).Register(router)
	handler.NewArchiveHandler(archiveService, identityStore).Register(router)
	handler.NewFacilityHandler(db, identityStore).Register(router)
	handler.NewSalesHandler(db, identityStore).Register(router)
	handler.NewResumeHandler(db, identityStore).Register(router)
	handler.NewFeedbackHandler(db, identityStore).Register(router)

	go func() {
		port := cfg.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	jobs.Stop(shutdownCtx)
}

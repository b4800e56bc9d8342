package main

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/opshub/gomicro/config"
	"github.com/suteetoe/opshub/gomicro/database"
	"github.com/suteetoe/opshub/gomicro/identity"
	"github.com/suteetoe/opshub/gomicro/jwtutil"
	"github.com/suteetoe/opshub/gomicro/logger"
	"github.com/suteetoe/opshub/gomicro/metrics"
	gomiddleware "github.com/suteetoe/opshub/gomicro/middleware"
	"github.com/suteetoe/opshub/services/authen-service/internal/handler"
	"github.com/suteetoe/opshub/services/authen-service/internal/service"
	"github.com/suteetoe/opshub/services/authen-service/prometheus"
	"go.uber.org/zap"
)

const serviceName = "authen-service"

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
	log.Info("Starting authentication service...", cfg.LogConfig()...)

	db, err := database.InitDB(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(identity.Models()...); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	jwtUtil := jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})

	prometheus.InitMetrics(cfg)
	httpMetrics := metrics.NewHTTPMetrics(serviceName)

	store := identity.NewStore(db)
	audits := service.NewLoginAuditService(db)
	accounts := service.NewAccountService(db, store, jwtUtil, audits)
	tenants := service.NewTenantService(db, store)

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(gomiddleware.RequestIDMiddleware())
	e.Use(httpMetrics.Middleware())
	e.Use(logger.Middleware())

	e.GET("/health", handler.HealthCheck(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}))
	e.GET("/metrics", echo.WrapHandler(metrics.GetPrometheusHandler()))

	// Authentication routes are how callers obtain access to /api
	authHandler := handler.NewAuthHandler(accounts)
	auth := e.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register", authHandler.Register)

	api := e.Group("/api")
	api.Use(gomiddleware.JWTAuthMiddleware(jwtUtil, prometheus.AuthHooks()))
	handler.NewTenantHandler(tenants, accounts).Register(api)
	handler.NewLoginAuditHandler(audits).Register(api)

	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

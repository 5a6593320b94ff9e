package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/di"
	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/internal/metrics"
	"github.com/prohmpiriya/shelf-booking/internal/middleware"
	"github.com/prohmpiriya/shelf-booking/pkg/config"
	"github.com/prohmpiriya/shelf-booking/pkg/database"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
	pkgmiddleware "github.com/prohmpiriya/shelf-booking/pkg/middleware"
	pkgredis "github.com/prohmpiriya/shelf-booking/pkg/redis"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

const serviceName = "shelf-booking-api"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting shelf booking API", zap.String("version", cfg.App.Version))

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, di.TelemetryConfig(cfg, serviceName)); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	dbCfg := di.PostgresConfig(cfg)
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected", zap.Int32("min_conns", dbCfg.MinConns), zap.Int32("max_conns", dbCfg.MaxConns))
	if err := metrics.RegisterPool(func() metrics.PoolStats { return db.Stats() }); err != nil {
		appLog.Warn("Pool metrics not registered", zap.Error(err))
	}

	// Redis backs the zone cache and idempotency records. Without it the API
	// still serves, uncached and without replay protection.
	redisClient, err := pkgredis.NewClient(ctx, di.RedisConfig(cfg))
	if err != nil {
		appLog.Warn("Redis connection failed, cache and idempotency disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:           db,
		Redis:        redisClient,
		ServiceName:  serviceName,
		CacheEnabled: cfg.Cache.Enabled,
		ZoneCacheTTL: cfg.Cache.ZoneTTL,
		JWTSecret:    cfg.JWT.Secret,
		JWTIssuer:    cfg.JWT.Issuer,
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	var idempotency gin.HandlerFunc
	if redisClient != nil {
		idempotency = pkgmiddleware.IdempotencyMiddleware(
			pkgmiddleware.DefaultIdempotencyConfig(pkgmiddleware.NewRedisStore(redisClient)),
		)
	} else {
		idempotency = func(c *gin.Context) { c.Next() }
	}

	dmpOnly := middleware.RequireRole(domain.RoleDMPManager)

	// API routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(container.TokenVerifier))
	{
		zones := v1.Group("/zones")
		{
			zones.GET("", container.ZoneHandler.List)
			zones.GET("/filter-options", container.ZoneHandler.FilterOptions)
			zones.GET("/export", container.ZoneHandler.Export)
			zones.GET("/:id", container.ZoneHandler.Get)
			zones.PATCH("/:id", dmpOnly, container.ZoneHandler.Claim)
			zones.PATCH("/:id/status", dmpOnly, container.ZoneHandler.UpdateStatus)
			zones.POST("/bulk-update", dmpOnly, container.ZoneHandler.BulkUpdate)
			zones.POST("/import", dmpOnly, container.ZoneHandler.Import)
			zones.DELETE("/bulk-delete", dmpOnly, container.ZoneHandler.BulkDelete)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.POST("", idempotency, container.BookingHandler.Create)
			bookings.GET("/:id", container.BookingHandler.Get)
			bookings.PATCH("/:id", container.BookingHandler.UpdateStatus)
		}

		requests := v1.Group("/requests")
		{
			requests.GET("", container.RequestHandler.List)
			requests.GET("/:id", container.RequestHandler.Get)
			requests.PATCH("/:id", container.RequestHandler.UpdateStatus)
		}

		v1.POST("/cache/clear-zones", dmpOnly, container.CacheHandler.ClearZones)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		appLog.Info("Shelf booking API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error("Server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Server exited gracefully")
}

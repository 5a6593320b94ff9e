package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/di"
	"github.com/prohmpiriya/shelf-booking/internal/handler"
	"github.com/prohmpiriya/shelf-booking/internal/metrics"
	"github.com/prohmpiriya/shelf-booking/internal/repository"
	"github.com/prohmpiriya/shelf-booking/internal/worker"
	"github.com/prohmpiriya/shelf-booking/pkg/config"
	"github.com/prohmpiriya/shelf-booking/pkg/database"
	"github.com/prohmpiriya/shelf-booking/pkg/kafka"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
	"github.com/prohmpiriya/shelf-booking/pkg/telemetry"
)

const (
	serviceName = "shelf-booking-outbox-relay"
	// the relay serves probes and metrics next to the API port
	adminPortOffset = 1000
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting outbox relay", zap.String("topic", cfg.Kafka.Topic))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, di.TelemetryConfig(cfg, serviceName)); err != nil {
		appLog.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	db, err := database.NewPostgres(ctx, di.PostgresConfig(cfg))
	if err != nil {
		appLog.Fatal("Database connection failed", zap.Error(err))
	}
	defer db.Close()

	if err := metrics.RegisterPool(func() metrics.PoolStats { return db.Stats() }); err != nil {
		appLog.Warn("Pool metrics not registered", zap.Error(err))
	}

	producer, err := kafka.NewProducer(ctx, di.ProducerConfig(cfg))
	if err != nil {
		appLog.Fatal("Kafka connection failed", zap.Error(err))
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected", zap.Strings("brokers", cfg.Kafka.Brokers))

	relay := worker.NewOutboxWorker(
		repository.NewPostgresOutboxRepository(db.Pool()),
		repository.NewPgxTxManager(db.Pool()),
		producer,
		&worker.OutboxWorkerConfig{
			Topic:                cfg.Kafka.Topic,
			PollInterval:         cfg.Outbox.PollInterval,
			RetryInterval:        cfg.Outbox.RetryInterval,
			BatchSize:            cfg.Outbox.BatchSize,
			CleanupInterval:      cfg.Outbox.CleanupEvery,
			CleanupRetentionDays: cfg.Outbox.RetentionDays,
		},
	)
	if err := relay.Start(ctx); err != nil {
		appLog.Fatal("Failed to start outbox relay", zap.Error(err))
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	health := handler.NewHealthHandler(serviceName, map[string]handler.Pinger{"postgres": db})
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	admin := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+adminPortOffset),
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
	}
	go func() {
		appLog.Info("Relay admin server listening", zap.String("addr", admin.Addr))
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("Relay admin server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down outbox relay...")

	// Stop waits for the in-flight batch before the pool and producer close
	relay.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Relay admin server forced to shutdown", zap.Error(err))
	}

	appLog.Info("Outbox relay stopped")
}

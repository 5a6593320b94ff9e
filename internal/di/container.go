package di

import (
	"time"

	"github.com/prohmpiriya/shelf-booking/internal/cache"
	"github.com/prohmpiriya/shelf-booking/internal/handler"
	"github.com/prohmpiriya/shelf-booking/internal/middleware"
	"github.com/prohmpiriya/shelf-booking/internal/repository"
	"github.com/prohmpiriya/shelf-booking/internal/service"
	"github.com/prohmpiriya/shelf-booking/pkg/database"
	"github.com/prohmpiriya/shelf-booking/pkg/redis"
)

// Container holds all dependencies of the API server
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	TxManager   repository.TxManager
	ZoneRepo    repository.ZoneRepository
	BookingRepo repository.BookingRepository
	RequestRepo repository.RequestRepository
	OutboxRepo  repository.OutboxRepository

	ZoneCache cache.ZoneListCache

	// Services
	ZoneService     service.ZoneService
	BookingService  service.BookingService
	ApprovalService service.ApprovalService
	RequestService  service.RequestService

	TokenVerifier *middleware.TokenVerifier

	// Handlers
	HealthHandler  *handler.HealthHandler
	ZoneHandler    *handler.ZoneHandler
	BookingHandler *handler.BookingHandler
	RequestHandler *handler.RequestHandler
	CacheHandler   *handler.CacheHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB    *database.PostgresDB
	Redis *redis.Client

	ServiceName  string
	CacheEnabled bool
	ZoneCacheTTL time.Duration
	JWTSecret    string
	JWTIssuer    string
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	pool := cfg.DB.Pool()
	c.TxManager = repository.NewPgxTxManager(pool)
	c.ZoneRepo = repository.NewPostgresZoneRepository(pool)
	c.BookingRepo = repository.NewPostgresBookingRepository(pool)
	c.RequestRepo = repository.NewPostgresRequestRepository(pool)
	c.OutboxRepo = repository.NewPostgresOutboxRepository(pool)

	if cfg.CacheEnabled && cfg.Redis != nil {
		c.ZoneCache = cache.NewRedisZoneListCache(cfg.Redis, cfg.ZoneCacheTTL)
	} else {
		c.ZoneCache = cache.NoopZoneListCache{}
	}

	// Initialize services
	c.ZoneService = service.NewZoneService(c.ZoneRepo, c.OutboxRepo, c.TxManager, c.ZoneCache)
	c.BookingService = service.NewBookingService(
		c.ZoneRepo,
		c.BookingRepo,
		c.RequestRepo,
		c.OutboxRepo,
		c.TxManager,
		c.ZoneCache,
	)
	c.ApprovalService = service.NewApprovalService(
		c.ZoneRepo,
		c.BookingRepo,
		c.RequestRepo,
		c.OutboxRepo,
		c.TxManager,
		c.ZoneCache,
	)
	c.RequestService = service.NewRequestService(c.BookingRepo, c.RequestRepo, c.OutboxRepo, c.TxManager)

	c.TokenVerifier = middleware.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	// Initialize handlers
	checks := map[string]handler.Pinger{"postgres": c.DB}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(cfg.ServiceName, checks)
	c.ZoneHandler = handler.NewZoneHandler(c.ZoneService)
	c.BookingHandler = handler.NewBookingHandler(c.BookingService, c.ApprovalService)
	c.RequestHandler = handler.NewRequestHandler(c.RequestService)
	c.CacheHandler = handler.NewCacheHandler(c.ZoneService)

	return c
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/dto"
	"github.com/prohmpiriya/shelf-booking/internal/metrics"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
	pkgredis "github.com/prohmpiriya/shelf-booking/pkg/redis"
)

const (
	// ZoneListVersionKey holds the current zone-list namespace version
	ZoneListVersionKey = "zones:list:version"

	zoneListKeyFormat = "zones:list:v%d:%s"
	cacheName         = "zone_list"

	// DefaultZoneTTL bounds how long entries of a superseded version linger
	DefaultZoneTTL = 5 * time.Minute
)

// Store is the subset of the Redis client the zone cache needs
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// ZoneListCache caches zone-list pages under a versioned namespace.
// Invalidate bumps the version so every existing entry becomes unreachable at once.
//
// Get reports the version it looked under; Set writes under that same version,
// so a page read before an Invalidate lands in the retired namespace.
type ZoneListCache interface {
	Get(ctx context.Context, filter *dto.ZoneListFilter) (page *dto.ZoneListResponse, version int64, ok bool)
	Set(ctx context.Context, version int64, filter *dto.ZoneListFilter, page *dto.ZoneListResponse)
	Invalidate(ctx context.Context) (int64, error)
}

// NoVersion is returned by Get when the version could not be read. Set ignores it.
const NoVersion int64 = -1

// RedisZoneListCache implements ZoneListCache on Redis
type RedisZoneListCache struct {
	store Store
	ttl   time.Duration
	log   *logger.Logger
}

// NewRedisZoneListCache creates a new RedisZoneListCache
func NewRedisZoneListCache(store Store, ttl time.Duration) *RedisZoneListCache {
	if ttl <= 0 {
		ttl = DefaultZoneTTL
	}
	return &RedisZoneListCache{
		store: store,
		ttl:   ttl,
		log:   logger.Get().With(zap.String("component", "zone_cache")),
	}
}

func (c *RedisZoneListCache) version(ctx context.Context) (int64, error) {
	raw, err := c.store.Get(ctx, ZoneListVersionKey)
	if errors.Is(err, pkgredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt zone list version %q: %w", raw, err)
	}
	return v, nil
}

// Key returns the cache key of filter under version
func Key(version int64, filter *dto.ZoneListFilter) string {
	raw, _ := json.Marshal(filter)
	sum := sha256.Sum256(raw)
	return fmt.Sprintf(zoneListKeyFormat, version, hex.EncodeToString(sum[:16]))
}

// Get returns a cached page and the version it was looked up under. Any cache
// failure is reported as a miss.
func (c *RedisZoneListCache) Get(ctx context.Context, filter *dto.ZoneListFilter) (*dto.ZoneListResponse, int64, bool) {
	version, err := c.version(ctx)
	if err != nil {
		c.log.WarnContext(ctx, "zone cache version lookup failed", zap.Error(err))
		metrics.RecordCacheLookup(cacheName, "error")
		return nil, NoVersion, false
	}

	raw, err := c.store.Get(ctx, Key(version, filter))
	if errors.Is(err, pkgredis.Nil) {
		metrics.RecordCacheLookup(cacheName, "miss")
		return nil, version, false
	}
	if err != nil {
		c.log.WarnContext(ctx, "zone cache read failed", zap.Error(err))
		metrics.RecordCacheLookup(cacheName, "error")
		return nil, version, false
	}

	var page dto.ZoneListResponse
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		c.log.WarnContext(ctx, "zone cache entry is not valid json", zap.Error(err))
		metrics.RecordCacheLookup(cacheName, "error")
		return nil, version, false
	}
	metrics.RecordCacheLookup(cacheName, "hit")
	return &page, version, true
}

// Set stores a page under version, the one returned by the Get that missed.
// The current version is never re-read here.
func (c *RedisZoneListCache) Set(ctx context.Context, version int64, filter *dto.ZoneListFilter, page *dto.ZoneListResponse) {
	if version < 0 {
		return
	}
	data, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, Key(version, filter), data, c.ttl); err != nil {
		c.log.WarnContext(ctx, "zone cache write failed", zap.Error(err))
	}
}

// Invalidate bumps the namespace version and returns the new one
func (c *RedisZoneListCache) Invalidate(ctx context.Context) (int64, error) {
	v, err := c.store.Incr(ctx, ZoneListVersionKey)
	metrics.RecordCacheInvalidation(cacheName, err)
	if err != nil {
		return 0, fmt.Errorf("failed to bump zone list version: %w", err)
	}
	return v, nil
}

// NoopZoneListCache is used when caching is disabled
type NoopZoneListCache struct{}

func (NoopZoneListCache) Get(context.Context, *dto.ZoneListFilter) (*dto.ZoneListResponse, int64, bool) {
	return nil, NoVersion, false
}

func (NoopZoneListCache) Set(context.Context, int64, *dto.ZoneListFilter, *dto.ZoneListResponse) {}

func (NoopZoneListCache) Invalidate(context.Context) (int64, error) { return 0, nil }

var (
	_ ZoneListCache = (*RedisZoneListCache)(nil)
	_ ZoneListCache = NoopZoneListCache{}
	_ Store         = (*pkgredis.Client)(nil)
)

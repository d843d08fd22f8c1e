package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedLookup caches value-to-domain resolutions in Redis. A status value
// never moves between domains, so cached entries only go stale when a value
// is deleted; a deleted id lingers for at most the TTL.
type CachedLookup struct {
	client *redis.Client
	next   Lookup
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedLookup wraps next with a Redis cache. Redis failures fall through
// to the underlying lookup.
func NewCachedLookup(client *redis.Client, next Lookup, ttl time.Duration, logger *slog.Logger) *CachedLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedLookup{client: client, next: next, ttl: ttl, logger: logger}
}

var _ Lookup = (*CachedLookup)(nil)

// EntityTypeOf resolves the domain of a status value, consulting the cache
// first. Only positive resolutions are cached; ErrNotFound always reflects
// the current catalog.
func (c *CachedLookup) EntityTypeOf(ctx context.Context, id int64) (string, error) {
	key := cacheKey(id)
	if c.client != nil {
		entityType, err := c.client.Get(ctx, key).Result()
		if err == nil {
			return entityType, nil
		}
		if err != redis.Nil {
			c.logger.Warn("status cache read", slog.Any("error", err))
		}
	}
	entityType, err := c.next.EntityTypeOf(ctx, id)
	if err != nil {
		return "", err
	}
	if c.client != nil {
		if err := c.client.Set(ctx, key, entityType, c.ttl).Err(); err != nil {
			c.logger.Warn("status cache write", slog.Any("error", err))
		}
	}
	return entityType, nil
}

// Invalidate drops a cached resolution after a value is deleted.
func (c *CachedLookup) Invalidate(ctx context.Context, id int64) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.Warn("status cache invalidate", slog.Any("error", err))
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("castellan:status:entity_type:%d", id)
}

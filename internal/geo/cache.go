package geo

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

// CachedLookup memoises successful lookups in Redis. Failures are never
// cached, so a flapping lookup source keeps failing closed per request.
type CachedLookup struct {
	next   Lookup
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewCachedLookup(next Lookup, client *redis.Client, ttl time.Duration) *CachedLookup {
	return &CachedLookup{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: "geo:country:",
	}
}

func (c *CachedLookup) Country(ctx context.Context, ip net.IP) (string, error) {
	key := c.prefix + ip.String()

	code, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil && code != "":
		return code, nil
	case err != nil && !errors.Is(err, redis.Nil):
		logger.Warn("geo cache read failed", map[string]any{
			"error": err.Error(),
		})
	}

	code, err = c.next.Country(ctx, ip)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, code, c.ttl).Err(); err != nil {
		logger.Warn("geo cache write failed", map[string]any{
			"error": err.Error(),
		})
	}
	return code, nil
}

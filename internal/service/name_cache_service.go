package service

import (
	"context"
	"time"

	"msgcounter/pkg/logger"
	"msgcounter/pkg/redis"
)

// cachedResolver is a cache-aside UserResolver backed by Redis. Cache errors
// fall through to the platform lookup; only successful lookups are cached.
type cachedResolver struct {
	next   UserResolver
	redis  *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedResolver wraps next with a Redis display-name cache. A nil client
// returns next unchanged.
func NewCachedResolver(next UserResolver, client *redis.Client, ttl time.Duration, logger *logger.Logger) UserResolver {
	if client == nil {
		return next
	}
	if ttl <= 0 {
		ttl = redis.TTLDisplayName
	}
	return &cachedResolver{
		next:   next,
		redis:  client,
		ttl:    ttl,
		logger: logger.Named("name_cache"),
	}
}

func (c *cachedResolver) DisplayName(ctx context.Context, userID string) (string, error) {
	key := c.redis.KeyBuilder.KeyDisplayName(userID)

	cached, err := c.redis.Get(ctx, key)
	switch {
	case err == nil && cached != "":
		c.logger.WithField("user_id", userID).Debug("Display name cache hit")
		return cached, nil
	case err != nil && !redis.IsNil(err):
		c.logger.WithError(err).WithField("user_id", userID).Warn("Display name cache error, falling back to lookup")
	}

	name, err := c.next.DisplayName(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := c.redis.Set(ctx, key, name, c.ttl); err != nil {
		c.logger.WithError(err).WithField("user_id", userID).Warn("Failed to cache display name")
	}
	return name, nil
}

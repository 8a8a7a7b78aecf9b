package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Client struct {
	rdb        *redis.Client
	KeyBuilder *KeyBuilder
	log        *zap.Logger
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(redisURL string, environment string, log *zap.Logger) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// A single bot process only flushes every few minutes
	opts.PoolSize = 4
	opts.MinIdleConns = 1
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Client{rdb: rdb, KeyBuilder: NewKeyBuilder(environment), log: log}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Get retrieves a value from Redis
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := c.rdb.Get(ctx, key).Result()
	c.logOp("redis_get", key, time.Since(start), ignoreNil(err))
	return val, err
}

// Set stores a value with an expiration; zero means no expiry
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, value, expiration).Err()
	c.logOp("redis_set", key, time.Since(start), err)
	return err
}

// HGetAll gets all fields from a hash
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	start := time.Now()
	m, err := c.rdb.HGetAll(ctx, key).Result()
	c.logOp("redis_hgetall", key, time.Since(start), err, zap.Int("fields", len(m)))
	return m, err
}

// Health pings the server
func (c *Client) Health(ctx context.Context) error {
	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	c.logOp("redis_ping", "", time.Since(start), err)
	return err
}

// Pipeline creates a new transactional pipeline for batch operations
func (c *Client) Pipeline() redis.Pipeliner {
	return c.rdb.TxPipeline()
}

// ExecPipeline runs a pipeline and logs its timing under the given operation name
func (c *Client) ExecPipeline(ctx context.Context, op string, pipe redis.Pipeliner) error {
	queued := pipe.Len()
	start := time.Now()
	_, err := pipe.Exec(ctx)
	c.logOp(op, "", time.Since(start), err, zap.Int("commands", queued))
	return err
}

// logOp logs failures at info and successes at debug
func (c *Client) logOp(op, key string, dur time.Duration, err error, extra ...zap.Field) {
	fields := make([]zap.Field, 0, len(extra)+3)
	if key != "" {
		fields = append(fields, zap.String("key_prefix", prefixForLog(key)))
	}
	fields = append(fields, zap.Duration("duration", dur))
	if err != nil {
		c.log.Info(op, append(fields, zap.Error(err))...)
		return
	}
	c.log.Debug(op, append(fields, extra...)...)
}

func ignoreNil(err error) error {
	if err == redis.Nil {
		return nil
	}
	return err
}

// IsNil reports whether err is the Redis "key does not exist" reply
func IsNil(err error) bool {
	return err == redis.Nil
}

// prefixForLog returns a safe prefix of a key to avoid logging PII
func prefixForLog(key string) string {
	if len(key) <= 24 {
		return key
	}
	return key[:24] + "…"
}

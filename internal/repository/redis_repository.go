package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"msgcounter/internal/domain"
	"msgcounter/pkg/logger"
	"msgcounter/pkg/redis"
)

// redisRepository mirrors counter snapshots into Redis hashes. It is the only
// backend that keeps cooldown timestamps across restarts.
type redisRepository struct {
	client   *redis.Client
	cooldown time.Duration
	logger   *logger.Logger
}

// NewRedisRepository creates a Redis-backed counts repository. Cooldown
// entries older than cooldown are not written since they no longer gate anything.
func NewRedisRepository(client *redis.Client, cooldown time.Duration, logger *logger.Logger) CountsRepository {
	return &redisRepository{
		client:   client,
		cooldown: cooldown,
		logger:   logger.Named("redis_repository"),
	}
}

func (r *redisRepository) Name() string {
	return "redis"
}

// Save replaces the mirrored hashes in a single transaction
func (r *redisRepository) Save(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		snap = domain.NewSnapshot()
	}

	now := snap.TakenAt
	if now.IsZero() {
		now = time.Now()
	}

	kb := r.client.KeyBuilder
	pipe := r.client.Pipeline()

	for _, kind := range []domain.CounterKind{domain.CounterTotal, domain.CounterDelayed} {
		key := kb.KeyCounts(string(kind))
		pipe.Del(ctx, key)

		counts := snap.Counts(kind)
		if len(counts) == 0 {
			continue
		}
		fields := make(map[string]interface{}, len(counts))
		for id, count := range counts {
			fields[id] = count
		}
		pipe.HSet(ctx, key, fields)
	}

	pipe.Del(ctx, kb.KeyLastSeen())
	active := make(map[string]interface{})
	for id, ts := range snap.LastSeen {
		if now.Sub(ts) < r.cooldown {
			active[id] = ts.UnixNano()
		}
	}
	if len(active) > 0 {
		pipe.HSet(ctx, kb.KeyLastSeen(), active)
	}

	pipe.Set(ctx, kb.KeyLastUpdate(), now.Unix(), 0)

	if err := r.client.ExecPipeline(ctx, "redis_save_snapshot", pipe); err != nil {
		return fmt.Errorf("failed to save snapshot to Redis: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"total_users":    len(snap.Total),
		"delayed_users":  len(snap.Delayed),
		"cooldown_users": len(active),
	}).Debug("Saved snapshot to Redis")

	return nil
}

// Load reads the mirrored hashes. Fields that do not parse are skipped.
func (r *redisRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	kb := r.client.KeyBuilder
	snap := domain.NewSnapshot()

	for _, kind := range []domain.CounterKind{domain.CounterTotal, domain.CounterDelayed} {
		fields, err := r.client.HGetAll(ctx, kb.KeyCounts(string(kind)))
		if err != nil {
			return domain.NewSnapshot(), fmt.Errorf("failed to load %s counts from Redis: %w", kind, err)
		}
		counts := snap.Counts(kind)
		for id, raw := range fields {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || n < 0 {
				r.logger.WithFields(map[string]interface{}{
					"kind":    string(kind),
					"user_id": id,
					"value":   raw,
				}).Warn("Skipping malformed Redis count")
				continue
			}
			counts[id] = n
		}
	}

	fields, err := r.client.HGetAll(ctx, kb.KeyLastSeen())
	if err != nil {
		return domain.NewSnapshot(), fmt.Errorf("failed to load cooldowns from Redis: %w", err)
	}
	for id, raw := range fields {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		snap.LastSeen[id] = time.Unix(0, nanos)
	}

	r.logger.WithFields(map[string]interface{}{
		"total_users":    len(snap.Total),
		"delayed_users":  len(snap.Delayed),
		"cooldown_users": len(snap.LastSeen),
	}).Info("Loaded snapshot from Redis")

	return snap, nil
}

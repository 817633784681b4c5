package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"adventure-server/shared/interfaces"
	"adventure-server/shared/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ interfaces.EndingStatsCache = (*redisStatsCache)(nil)

const endingStatsKeyPrefix = "ending_stats:"

type redisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStatsCache creates a Redis-backed cache of per-story ending statistics.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) interfaces.EndingStatsCache {
	return &redisStatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisStatsCache"),
	}
}

func endingStatsKey(storyID uuid.UUID) string {
	return endingStatsKeyPrefix + storyID.String()
}

func (c *redisStatsCache) Get(ctx context.Context, storyID uuid.UUID) ([]models.EndingStat, bool, error) {
	raw, err := c.client.Get(ctx, endingStatsKey(storyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		c.logger.Warn("Failed to read ending stats from cache", zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, false, fmt.Errorf("failed to read ending stats cache: %w", err)
	}

	var stats []models.EndingStat
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("Corrupted ending stats cache entry, dropping", zap.Stringer("storyID", storyID), zap.Error(err))
		_ = c.client.Del(ctx, endingStatsKey(storyID)).Err()
		return nil, false, nil
	}
	return stats, true, nil
}

func (c *redisStatsCache) Set(ctx context.Context, storyID uuid.UUID, stats []models.EndingStat) error {
	if stats == nil {
		stats = []models.EndingStat{}
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal ending stats: %w", err)
	}
	if err := c.client.Set(ctx, endingStatsKey(storyID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write ending stats to cache", zap.Stringer("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to write ending stats cache: %w", err)
	}
	return nil
}

func (c *redisStatsCache) Invalidate(ctx context.Context, storyID uuid.UUID) error {
	if err := c.client.Del(ctx, endingStatsKey(storyID)).Err(); err != nil {
		c.logger.Warn("Failed to invalidate ending stats cache", zap.Stringer("storyID", storyID), zap.Error(err))
		return fmt.Errorf("failed to invalidate ending stats cache: %w", err)
	}
	c.logger.Debug("Ending stats cache invalidated", zap.Stringer("storyID", storyID))
	return nil
}

// NoopStatsCache disables caching.
type NoopStatsCache struct{}

var _ interfaces.EndingStatsCache = NoopStatsCache{}

func (NoopStatsCache) Get(context.Context, uuid.UUID) ([]models.EndingStat, bool, error) {
	return nil, false, nil
}
func (NoopStatsCache) Set(context.Context, uuid.UUID, []models.EndingStat) error { return nil }
func (NoopStatsCache) Invalidate(context.Context, uuid.UUID) error              { return nil }

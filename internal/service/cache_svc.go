package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/tube301/internal/model"
)

const (
	VideoCacheTTL = 5 * time.Minute

	rankingsKey = "rankings:current"
)

// NewRedisClient parses redisURL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// CacheService provides a Redis cache-aside layer for video lookups and holds
// the published ranking snapshot. A nil client turns every call into a no-op.
type CacheService struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewCacheService(rdb *redis.Client, logger zerolog.Logger) *CacheService {
	if rdb == nil {
		logger.Warn().Msg("redis: no client, caching disabled")
	}
	return &CacheService{rdb: rdb, logger: logger}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetVideo retrieves a cached video response. Returns nil if not cached or cache is disabled.
func (c *CacheService) GetVideo(ctx context.Context, videoID string) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, videoKey(videoID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// SetVideo stores a video response in cache.
func (c *CacheService) SetVideo(ctx context.Context, videoID string, data any) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, videoKey(videoID), b, VideoCacheTTL).Err()
}

// InvalidateVideo removes a video from cache (called after a refresh).
func (c *CacheService) InvalidateVideo(ctx context.Context, videoID string) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, videoKey(videoID)).Err()
}

// PublishRankings stores set as the current ranking snapshot.
func (c *CacheService) PublishRankings(ctx context.Context, set *model.RankingSet) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, rankingsKey, b, 0).Err()
}

// GetRankings returns the last published ranking snapshot, or nil if none.
func (c *CacheService) GetRankings(ctx context.Context) (*model.RankingSet, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, rankingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var set model.RankingSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode ranking snapshot: %w", err)
	}
	return &set, nil
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func videoKey(videoID string) string {
	return fmt.Sprintf("video:%s", videoID)
}

package service

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// blacklistKey is the Redis set holding every id that was checked and found
// not to qualify. It only ever grows.
const blacklistKey = "filteredVideoIds"

// BlacklistService is the Redis-backed Blacklist.
type BlacklistService struct {
	rdb *redis.Client
}

func NewBlacklistService(rdb *redis.Client) *BlacklistService {
	return &BlacklistService{rdb: rdb}
}

func (b *BlacklistService) IsBlacklisted(ctx context.Context, videoID string) (bool, error) {
	return b.rdb.SIsMember(ctx, blacklistKey, videoID).Result()
}

// Add records videoID in the blacklist. Adding an existing id is a no-op.
func (b *BlacklistService) Add(ctx context.Context, videoID string) error {
	return b.rdb.SAdd(ctx, blacklistKey, videoID).Err()
}

// Size returns the number of blacklisted ids.
func (b *BlacklistService) Size(ctx context.Context) (int64, error) {
	return b.rdb.SCard(ctx, blacklistKey).Result()
}

package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/tube301/internal/metrics"
	"github.com/mathieu-neron/tube301/internal/model"
)

// VideoReader is the persistence needed by the read API.
type VideoReader interface {
	FindByVideoID(ctx context.Context, videoID string) (*model.Video, error)
	Stats(ctx context.Context) (*model.StatsResponse, error)
}

// BlacklistCounter reports the size of the blacklist.
type BlacklistCounter interface {
	Size(ctx context.Context) (int64, error)
}

// VideoService serves persisted records and global counts to the read API.
type VideoService struct {
	repo      VideoReader
	cache     *CacheService
	rankings  *RankingCache
	blacklist BlacklistCounter
}

func NewVideoService(repo VideoReader, cache *CacheService, rankings *RankingCache, blacklist BlacklistCounter) *VideoService {
	return &VideoService{repo: repo, cache: cache, rankings: rankings, blacklist: blacklist}
}

// LookupByVideoID returns one record, served from Redis when cached.
func (s *VideoService) LookupByVideoID(ctx context.Context, videoID string) (*model.Video, error) {
	if data, err := s.cache.GetVideo(ctx, videoID); err == nil && data != nil {
		var v model.Video
		if json.Unmarshal(data, &v) == nil {
			metrics.CacheHits.Inc()
			return &v, nil
		}
	}
	metrics.CacheMisses.Inc()

	video, err := s.repo.FindByVideoID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetVideo(ctx, videoID, video); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("video_id", videoID).Msg("cache set failed")
	}
	return video, nil
}

// GetStats returns global record counts plus the current ranking size.
func (s *VideoService) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if s.blacklist != nil {
		if n, err := s.blacklist.Size(ctx); err == nil {
			stats.Blacklisted = n
		}
	}
	current := s.rankings.Current()
	stats.RankedVideos = len(current.Videos)
	stats.RankedAt = current.GeneratedAt
	return stats, nil
}

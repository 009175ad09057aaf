package service

import (
	"context"
	"time"

	"github.com/mathieu-neron/tube301/internal/model"
)

// VideoPlatform is the video platform's data API.
type VideoPlatform interface {
	ListVideos(ctx context.Context, start, end time.Time, pageToken string) (*model.SearchPage, error)
	VideoStatistics(ctx context.Context, ids []string, includeMetadata bool) ([]model.VideoDetails, error)
	ChannelStatistics(ctx context.Context, ids []string) ([]model.ChannelDetails, error)
}

// LinkSource yields candidate video ids scraped from a link aggregator.
type LinkSource interface {
	VideoIDs(ctx context.Context) ([]string, error)
}

// Blacklist is the durable set of ids known not to qualify.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, videoID string) (bool, error)
	Add(ctx context.Context, videoID string) error
}

// DiscoveryStore is the persistence needed by discovery.
type DiscoveryStore interface {
	Exists(ctx context.Context, videoID string) (bool, error)
	Create(ctx context.Context, v *model.Video) error
}

// LifecycleStore is the persistence needed by the refresh passes.
type LifecycleStore interface {
	FindActiveOnTarget(ctx context.Context, target int64) ([]model.Video, error)
	FindArchiveCandidates(ctx context.Context, createdBefore time.Time) ([]model.Video, error)
	ApplyUpdate(ctx context.Context, u model.VideoUpdate) error
	DeactivateOffTarget(ctx context.Context, target int64) (int64, error)
}

// RankingStore is the persistence needed by the ranking engine.
type RankingStore interface {
	FindRankingCandidates(ctx context.Context, minSamples int, minLikes int64) ([]model.Video, error)
	ReplaceRankings(ctx context.Context, set *model.RankingSet) error
}

// PredictionStore is the persistence needed by the prediction job.
type PredictionStore interface {
	FindPredictionCandidates(ctx context.Context, minSamples int, minLikes int64) ([]model.Video, error)
	SetPredictedViewCount(ctx context.Context, videoID string, predicted int64) error
}

// Predictor estimates a video's eventual view count from its features.
type Predictor interface {
	PredictViewCount(ctx context.Context, f model.PredictionFeatures) (float64, error)
}

// RankingPublisher receives every new ranked set after it is stored.
type RankingPublisher interface {
	PublishRankings(ctx context.Context, set *model.RankingSet) error
}

// VideoInvalidator drops cached copies of a video after it changes.
type VideoInvalidator interface {
	InvalidateVideo(ctx context.Context, videoID string) error
}

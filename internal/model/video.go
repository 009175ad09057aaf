package model

import (
	"fmt"
	"time"
)

// TargetViewCount is the exact view count a video must show at discovery
// time to be tracked.
const TargetViewCount = 301

// Source identifies where a video was discovered.
type Source string

const (
	SourceYouTube Source = "youTube"
	SourceReddit  Source = "reddit"
	SourceDigg    Source = "digg"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceYouTube, SourceReddit, SourceDigg:
		return true
	}
	return false
}

// PlatformNative reports whether the source is the video platform itself
// rather than a link aggregator.
func (s Source) PlatformNative() bool {
	return s == SourceYouTube
}

// ParseSource converts a stored source tag back into a Source.
func ParseSource(v string) (Source, error) {
	s := Source(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown source %q", v)
	}
	return s, nil
}

// Statistics is one snapshot of a video's public counters.
type Statistics struct {
	ViewCount     int64 `json:"viewCount"`
	LikeCount     int64 `json:"likeCount"`
	DislikeCount  int64 `json:"dislikeCount"`
	FavoriteCount int64 `json:"favoriteCount"`
	CommentCount  int64 `json:"commentCount"`
}

// Differs reports whether any tracked counter differs from o.
func (s Statistics) Differs(o Statistics) bool {
	return s.ViewCount != o.ViewCount ||
		s.LikeCount != o.LikeCount ||
		s.DislikeCount != o.DislikeCount ||
		s.FavoriteCount != o.FavoriteCount ||
		s.CommentCount != o.CommentCount
}

// VoteScore is likes minus dislikes.
func (s Statistics) VoteScore() int64 {
	return s.LikeCount - s.DislikeCount
}

// HistoricalSample is a statistics snapshot tagged with its capture time.
type HistoricalSample struct {
	Timestamp time.Time `json:"timestamp"`
	Statistics
}

// Thumbnails holds the three thumbnail sizes served by the platform.
type Thumbnails struct {
	Default string `json:"default,omitempty"`
	Medium  string `json:"medium,omitempty"`
	High    string `json:"high,omitempty"`
}

// Video is a persisted video that showed exactly TargetViewCount views when
// it was discovered.
type Video struct {
	VideoID                string             `json:"videoId"`
	ChannelID              string             `json:"channelId"`
	ChannelTitle           string             `json:"channelTitle,omitempty"`
	ChannelSubscriberCount int64              `json:"channelSubscriberCount"`
	CategoryID             string             `json:"categoryId,omitempty"`
	PublishedAt            time.Time          `json:"publishedAt"`
	Title                  string             `json:"title"`
	Description            string             `json:"description,omitempty"`
	Source                 Source             `json:"source"`
	Thumbnails             Thumbnails         `json:"thumbnails"`
	Statistics             Statistics         `json:"statistics"`
	HistoricalStatistics   []HistoricalSample `json:"historicalStatistics,omitempty"`
	Active                 bool               `json:"active"`
	Archived               bool               `json:"archived"`
	WasRemoved             bool               `json:"wasRemoved"`
	PredictedViewCount     *int64             `json:"predictedViewCount,omitempty"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// NewVideo maps fetched platform details into a new, active record whose
// history is seeded with the discovery-time snapshot. Every source variant
// goes through this one mapping.
func NewVideo(source Source, details VideoDetails, channel ChannelDetails, now time.Time) *Video {
	now = now.UTC()
	return &Video{
		VideoID:                details.VideoID,
		ChannelID:              details.ChannelID,
		ChannelTitle:           details.ChannelTitle,
		ChannelSubscriberCount: channel.SubscriberCount,
		CategoryID:             details.CategoryID,
		PublishedAt:            details.PublishedAt,
		Title:                  details.Title,
		Description:            details.Description,
		Source:                 source,
		Thumbnails:             details.Thumbnails,
		Statistics:             details.Statistics,
		HistoricalStatistics: []HistoricalSample{{
			Timestamp:  now,
			Statistics: details.Statistics,
		}},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// URL returns the public watch URL of the video.
func (v *Video) URL() string {
	return WatchURL(v.VideoID)
}

// WatchURL builds the public watch URL for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

package model

import "time"

// RankedVideo is the derived output of one ranking pass. The whole set is
// rebuilt on every pass.
type RankedVideo struct {
	Rank                   int        `json:"rank"`
	VideoID                string     `json:"videoId"`
	URL                    string     `json:"url"`
	Title                  string     `json:"title"`
	Description            string     `json:"description,omitempty"`
	Source                 Source     `json:"source"`
	ChannelSubscriberCount int64      `json:"channelSubscriberCount"`
	PublishedAt            time.Time  `json:"publishedAt"`
	Statistics             Statistics `json:"statistics"`
	Thumbnails             Thumbnails `json:"thumbnails"`

	Score         float64 `json:"score"`
	ScalingFactor float64 `json:"scalingFactor"`
	RLin          float64 `json:"rLin"`
	RExp          float64 `json:"rExp"`
	RDiff         float64 `json:"rDiff"`
	ExpSelected   bool    `json:"expSelected"`
	GrowthRate    float64 `json:"growthRate"`
}

// RankingSet is one complete, immutable ranking pass result.
type RankingSet struct {
	Videos      []RankedVideo `json:"videos"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Eligible    int           `json:"eligible"`
}

// StatsResponse is the API response for global statistics.
type StatsResponse struct {
	TotalVideos    int       `json:"totalVideos"`
	ActiveVideos   int       `json:"activeVideos"`
	ArchivedVideos int       `json:"archivedVideos"`
	RemovedVideos  int       `json:"removedVideos"`
	Blacklisted    int64     `json:"blacklisted"`
	RankedVideos   int       `json:"rankedVideos"`
	RankedAt       time.Time `json:"rankedAt,omitempty"`
}

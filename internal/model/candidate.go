package model

import "time"

// Candidate is an unvalidated video id discovered from a source. It only
// lives for the duration of one discovery pass.
type Candidate struct {
	VideoID string
	Source  Source

	// ChannelID and LiveBroadcast are known up front only for platform
	// search results.
	ChannelID     string
	LiveBroadcast bool
}

// SearchPage is one page of platform search results.
type SearchPage struct {
	Items         []Candidate
	NextPageToken string
}

// VideoDetails is what the platform returns for one video id. Descriptive
// fields are empty unless metadata was requested.
type VideoDetails struct {
	VideoID       string
	ChannelID     string
	ChannelTitle  string
	CategoryID    string
	Title         string
	Description   string
	PublishedAt   time.Time
	Thumbnails    Thumbnails
	LiveBroadcast bool
	Statistics    Statistics
}

// ChannelDetails carries the aggregate channel statistics used for scoring.
type ChannelDetails struct {
	ChannelID       string
	SubscriberCount int64
}

// PredictionFeatures is the input of the view-count prediction service.
type PredictionFeatures struct {
	CategoryID             string
	Title                  string
	Description            string
	ChannelSubscriberCount int64
}

// Package youtube adapts the YouTube Data API v3 to the crawler's platform
// contract.
package youtube

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/mathieu-neron/tube301/internal/model"
)

// MaxResults is the API's page size and per-request id limit.
const MaxResults = 50

type Client struct {
	svc               *yt.Service
	regionCode        string
	relevanceLanguage string
}

// New creates a client authenticated with an API key.
func New(ctx context.Context, apiKey, regionCode, relevanceLanguage string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{svc: svc, regionCode: regionCode, relevanceLanguage: relevanceLanguage}, nil
}

// ListVideos returns one page of videos published in [start, end], most
// viewed first.
func (c *Client) ListVideos(ctx context.Context, start, end time.Time, pageToken string) (*model.SearchPage, error) {
	call := c.svc.Search.List([]string{"snippet"}).
		Type("video").
		Order("viewCount").
		MaxResults(MaxResults).
		PublishedAfter(start.UTC().Format(time.RFC3339)).
		PublishedBefore(end.UTC().Format(time.RFC3339)).
		Context(ctx)
	if c.regionCode != "" {
		call = call.RegionCode(c.regionCode)
	}
	if c.relevanceLanguage != "" {
		call = call.RelevanceLanguage(c.relevanceLanguage)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	page := &model.SearchPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		cand := model.Candidate{VideoID: item.Id.VideoId, Source: model.SourceYouTube}
		if item.Snippet != nil {
			cand.ChannelID = item.Snippet.ChannelId
			cand.LiveBroadcast = isLive(item.Snippet.LiveBroadcastContent)
		}
		page.Items = append(page.Items, cand)
	}
	return page, nil
}

// VideoStatistics returns statistics, and snippet metadata when requested,
// for at most MaxResults ids. Unknown ids are absent from the result.
func (c *Client) VideoStatistics(ctx context.Context, ids []string, includeMetadata bool) ([]model.VideoDetails, error) {
	if len(ids) > MaxResults {
		return nil, fmt.Errorf("videos.list: %d ids exceeds limit of %d", len(ids), MaxResults)
	}
	parts := []string{"id", "statistics"}
	if includeMetadata {
		parts = append(parts, "snippet")
	}

	resp, err := c.svc.Videos.List(parts).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([]model.VideoDetails, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, videoDetails(item))
	}
	return out, nil
}

// ChannelStatistics returns subscriber counts for at most MaxResults channels.
func (c *Client) ChannelStatistics(ctx context.Context, ids []string) ([]model.ChannelDetails, error) {
	if len(ids) > MaxResults {
		return nil, fmt.Errorf("channels.list: %d ids exceeds limit of %d", len(ids), MaxResults)
	}

	resp, err := c.svc.Channels.List([]string{"statistics"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	out := make([]model.ChannelDetails, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Statistics == nil {
			continue
		}
		out = append(out, model.ChannelDetails{
			ChannelID:       item.Id,
			SubscriberCount: int64(item.Statistics.SubscriberCount),
		})
	}
	return out, nil
}

func videoDetails(item *yt.Video) model.VideoDetails {
	d := model.VideoDetails{VideoID: item.Id}
	if s := item.Statistics; s != nil {
		d.Statistics = model.Statistics{
			ViewCount:     int64(s.ViewCount),
			LikeCount:     int64(s.LikeCount),
			DislikeCount:  int64(s.DislikeCount),
			FavoriteCount: int64(s.FavoriteCount),
			CommentCount:  int64(s.CommentCount),
		}
	}
	if sn := item.Snippet; sn != nil {
		d.ChannelID = sn.ChannelId
		d.ChannelTitle = sn.ChannelTitle
		d.CategoryID = sn.CategoryId
		d.Title = sn.Title
		d.Description = sn.Description
		d.LiveBroadcast = isLive(sn.LiveBroadcastContent)
		if t, err := time.Parse(time.RFC3339, sn.PublishedAt); err == nil {
			d.PublishedAt = t.UTC()
		}
		if th := sn.Thumbnails; th != nil {
			d.Thumbnails = model.Thumbnails{
				Default: thumbnailURL(th.Default),
				Medium:  thumbnailURL(th.Medium),
				High:    thumbnailURL(th.High),
			}
		}
	}
	return d
}

func thumbnailURL(t *yt.Thumbnail) string {
	if t == nil {
		return ""
	}
	return t.Url
}

func isLive(content string) bool {
	return content != "" && content != "none"
}

package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/mathieu-neron/tube301/internal/metrics"
	"github.com/mathieu-neron/tube301/internal/model"
)

// MaxBatchSize is the platform's per-request id limit.
const MaxBatchSize = 50

var ErrBatchTooLarge = fmt.Errorf("batch exceeds %d ids", MaxBatchSize)

// Enricher batches statistics lookups against the platform and caps the
// number of requests it has in flight.
type Enricher struct {
	platform VideoPlatform
	sem      *semaphore.Weighted
}

// NewEnricher creates an enricher that allows at most limit concurrent
// platform calls.
func NewEnricher(platform VideoPlatform, limit int) *Enricher {
	if limit < 1 {
		limit = 1
	}
	return &Enricher{platform: platform, sem: semaphore.NewWeighted(int64(limit))}
}

// Videos fetches up to MaxBatchSize videos. Ids the platform does not return
// are absent from the result.
func (e *Enricher) Videos(ctx context.Context, ids []string, includeMetadata bool) (map[string]model.VideoDetails, error) {
	if len(ids) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	if len(ids) == 0 {
		return map[string]model.VideoDetails{}, nil
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	items, err := e.platform.VideoStatistics(ctx, ids, includeMetadata)
	if err != nil {
		metrics.FetchErrors.WithLabelValues("videos").Inc()
		return nil, fmt.Errorf("fetch video statistics: %w", err)
	}
	out := make(map[string]model.VideoDetails, len(items))
	for _, it := range items {
		out[it.VideoID] = it
	}
	return out, nil
}

// Channels fetches up to MaxBatchSize channels.
func (e *Enricher) Channels(ctx context.Context, ids []string) (map[string]model.ChannelDetails, error) {
	if len(ids) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	if len(ids) == 0 {
		return map[string]model.ChannelDetails{}, nil
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	items, err := e.platform.ChannelStatistics(ctx, ids)
	if err != nil {
		metrics.FetchErrors.WithLabelValues("channels").Inc()
		return nil, fmt.Errorf("fetch channel statistics: %w", err)
	}
	out := make(map[string]model.ChannelDetails, len(items))
	for _, it := range items {
		out[it.ChannelID] = it
	}
	return out, nil
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var chunks [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		chunks = append(chunks, items[:n:n])
		items = items[n:]
	}
	return chunks
}

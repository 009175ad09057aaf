package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mathieu-neron/tube301/internal/metrics"
	"github.com/mathieu-neron/tube301/internal/model"
)

// ArchivePolicy lists the conditions that archive a refreshed record. Removal
// always archives.
type ArchivePolicy struct {
	// MaxAge archives records created longer ago than this. Zero disables it.
	MaxAge time.Duration
	// ViewsOverLikes archives records whose views exceed their likes.
	ViewsOverLikes bool
}

// PlanUpdate computes the refresh outcome for v given its freshly fetched
// details, nil when the platform no longer returns it. Archiving also
// deactivates; nothing here ever reactivates a record.
func PlanUpdate(v model.Video, fresh *model.VideoDetails, now time.Time, policy ArchivePolicy) model.VideoUpdate {
	u := model.VideoUpdate{VideoID: v.VideoID, UpdatedAt: now}

	if fresh == nil {
		u.Removed = true
		u.Archive = true
		u.Deactivate = true
		return u
	}

	stats := fresh.Statistics
	u.Statistics = &stats
	if stats.Differs(v.Statistics) {
		u.Sample = &model.HistoricalSample{Timestamp: now, Statistics: stats}
	}

	switch {
	case policy.MaxAge > 0 && now.Sub(v.CreatedAt) > policy.MaxAge:
		u.Archive = true
	case policy.ViewsOverLikes && stats.ViewCount > stats.LikeCount:
		u.Archive = true
	}
	u.Deactivate = u.Archive
	return u
}

// LifecycleOptions configures the refresh passes.
type LifecycleOptions struct {
	BatchSize               int
	Concurrency             int
	MinArchiveAge           time.Duration
	MaxArchiveAge           time.Duration
	ArchiveOnViewsOverLikes bool
	ProgressInterval        time.Duration
}

// LifecycleResult summarises one refresh pass.
type LifecycleResult struct {
	Records       int
	Updated       int
	Appended      int
	Removed       int
	Archived      int
	Failed        int
	FailedBatches int
	Deactivated   int64
}

// LifecycleService keeps persisted records in step with the platform.
type LifecycleService struct {
	store       LifecycleStore
	enricher    *Enricher
	invalidator VideoInvalidator
	opts        LifecycleOptions
	now         func() time.Time
}

func NewLifecycleService(store LifecycleStore, enricher *Enricher, invalidator VideoInvalidator, opts LifecycleOptions) *LifecycleService {
	if opts.BatchSize < 1 || opts.BatchSize > MaxBatchSize {
		opts.BatchSize = MaxBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 5 * time.Second
	}
	return &LifecycleService{
		store:       store,
		enricher:    enricher,
		invalidator: invalidator,
		opts:        opts,
		now:         time.Now,
	}
}

// UpdateActive refreshes every active record still on the target view count,
// then deactivates every active record that is no longer on it. The sweep
// runs only after every per-record write has finished.
func (s *LifecycleService) UpdateActive(ctx context.Context) (*LifecycleResult, error) {
	videos, err := s.store.FindActiveOnTarget(ctx, model.TargetViewCount)
	if err != nil {
		return nil, fmt.Errorf("load active videos: %w", err)
	}

	res, firstErr := s.refresh(ctx, "update", videos, ArchivePolicy{MaxAge: s.opts.MaxArchiveAge})

	n, err := s.store.DeactivateOffTarget(ctx, model.TargetViewCount)
	if err != nil {
		return res, errors.Join(firstErr, fmt.Errorf("deactivate off-target videos: %w", err))
	}
	res.Deactivated = n

	s.logResult(ctx, "update", res)
	return res, firstErr
}

// ArchiveInactive refreshes inactive, unarchived records older than the
// minimum archive age and archives the ones the policy selects.
func (s *LifecycleService) ArchiveInactive(ctx context.Context) (*LifecycleResult, error) {
	cutoff := s.now().Add(-s.opts.MinArchiveAge)
	videos, err := s.store.FindArchiveCandidates(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load archive candidates: %w", err)
	}

	res, firstErr := s.refresh(ctx, "archive", videos, ArchivePolicy{
		MaxAge:         s.opts.MaxArchiveAge,
		ViewsOverLikes: s.opts.ArchiveOnViewsOverLikes,
	})
	s.logResult(ctx, "archive", res)
	return res, firstErr
}

// refresh fetches videos in API-sized batches and writes each outcome with
// bounded concurrency. A failed batch fetch only skips that batch. Each batch
// fully drains before the next one starts.
func (s *LifecycleService) refresh(ctx context.Context, job string, videos []model.Video, policy ArchivePolicy) (*LifecycleResult, error) {
	res := &LifecycleResult{Records: len(videos)}
	if len(videos) == 0 {
		return res, nil
	}

	var remaining atomic.Int64
	remaining.Store(int64(len(videos)))
	done := make(chan struct{})
	go s.reportProgress(ctx, job, &remaining, done)
	defer close(done)

	var (
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, batch := range Chunk(videos, s.opts.BatchSize) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ids := make([]string, len(batch))
		for i, v := range batch {
			ids[i] = v.VideoID
		}
		fresh, err := s.enricher.Videos(ctx, ids, false)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("job", job).Int("batch_size", len(batch)).Msg("batch fetch failed")
			mu.Lock()
			res.FailedBatches++
			record(err)
			mu.Unlock()
			remaining.Add(-int64(len(batch)))
			continue
		}

		now := s.now().UTC()
		var g errgroup.Group
		g.SetLimit(s.opts.Concurrency)
		for _, v := range batch {
			var details *model.VideoDetails
			if d, ok := fresh[v.VideoID]; ok {
				details = &d
			}
			u := PlanUpdate(v, details, now, policy)

			g.Go(func() error {
				defer remaining.Add(-1)
				err := s.store.ApplyUpdate(ctx, u)
				if err == nil && s.invalidator != nil {
					if ierr := s.invalidator.InvalidateVideo(ctx, u.VideoID); ierr != nil {
						zerolog.Ctx(ctx).Warn().Err(ierr).Str("video_id", u.VideoID).Msg("cache invalidate failed")
					}
				}

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					zerolog.Ctx(ctx).Warn().Err(err).Str("job", job).Str("video_id", u.VideoID).Msg("record update failed")
					res.Failed++
					record(err)
					return nil
				}
				res.Updated++
				if u.Sample != nil {
					res.Appended++
				}
				if u.Removed {
					res.Removed++
				}
				if u.Archive {
					res.Archived++
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	return res, firstErr
}

func (s *LifecycleService) reportProgress(ctx context.Context, job string, remaining *atomic.Int64, done <-chan struct{}) {
	ticker := time.NewTicker(s.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		n := remaining.Load()
		metrics.UpdateBacklog.WithLabelValues(job).Set(float64(n))
		select {
		case <-done:
			metrics.UpdateBacklog.WithLabelValues(job).Set(0)
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			zerolog.Ctx(ctx).Info().Str("job", job).Int64("remaining", remaining.Load()).Msg("refresh progress")
		}
	}
}

func (s *LifecycleService) logResult(ctx context.Context, job string, r *LifecycleResult) {
	zerolog.Ctx(ctx).Info().
		Str("job", job).
		Int("records", r.Records).
		Int("updated", r.Updated).
		Int("history_appended", r.Appended).
		Int("removed", r.Removed).
		Int("archived", r.Archived).
		Int("failed", r.Failed).
		Int("failed_batches", r.FailedBatches).
		Int64("deactivated", r.Deactivated).
		Msg("refresh pass complete")
}

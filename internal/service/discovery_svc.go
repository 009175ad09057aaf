package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mathieu-neron/tube301/internal/metrics"
	"github.com/mathieu-neron/tube301/internal/model"
	"github.com/mathieu-neron/tube301/internal/repository"
)

// Outcome is what happened to one candidate.
type Outcome string

const (
	OutcomePersisted   Outcome = "persisted"
	OutcomeBlacklisted Outcome = "blacklisted"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeKnown       Outcome = "known"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeFailed      Outcome = "failed"
)

// DiscoveryResult summarises one discovery pass.
type DiscoveryResult struct {
	Source        model.Source
	Candidates    int
	Pages         int
	RepeatedPages int
	Outcomes      map[Outcome]int
}

func newDiscoveryResult(source model.Source) *DiscoveryResult {
	return &DiscoveryResult{Source: source, Outcomes: make(map[Outcome]int)}
}

// SearchOptions bounds a paginated platform search.
type SearchOptions struct {
	Lookback time.Duration
	MaxPages int
}

// DiscoveryService runs candidates through the blacklist, existence check,
// statistics fetch and classifier.
type DiscoveryService struct {
	platform    VideoPlatform
	enricher    *Enricher
	blacklist   Blacklist
	store       DiscoveryStore
	concurrency int
	now         func() time.Time
}

// NewDiscoveryService creates a discovery service that processes at most
// concurrency candidates at a time.
func NewDiscoveryService(platform VideoPlatform, enricher *Enricher, blacklist Blacklist, store DiscoveryStore, concurrency int) *DiscoveryService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DiscoveryService{
		platform:    platform,
		enricher:    enricher,
		blacklist:   blacklist,
		store:       store,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// RunSingleShot scrapes one link aggregator and processes every id it yields.
func (s *DiscoveryService) RunSingleShot(ctx context.Context, source model.Source, links LinkSource) (*DiscoveryResult, error) {
	ids, err := links.VideoIDs(ctx)
	if err != nil {
		metrics.FetchErrors.WithLabelValues("scrape_" + string(source)).Inc()
		return nil, fmt.Errorf("scrape %s: %w", source, err)
	}

	result := newDiscoveryResult(source)
	seen := make(map[string]struct{}, len(ids))
	candidates := make([]model.Candidate, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, model.Candidate{VideoID: id, Source: source})
	}

	err = s.process(ctx, candidates, result)
	s.logResult(ctx, result)
	return result, err
}

// RunPaginated walks the platform's popularity-ordered search over the
// lookback window. It stops after opts.MaxPages processed pages or when no
// continuation token is returned. A page that repeats the previous one is
// counted and skipped and does not count towards the limit.
func (s *DiscoveryService) RunPaginated(ctx context.Context, opts SearchOptions) (*DiscoveryResult, error) {
	end := s.now().UTC()
	start := end.Add(-opts.Lookback)

	result := newDiscoveryResult(model.SourceYouTube)
	seen := make(map[string]struct{})
	var (
		prev     *model.SearchPage
		token    string
		firstErr error
	)

	for result.Pages < opts.MaxPages && (token != "" || result.Pages == 0) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		// The upstream can hand back the same page forever; give up once the
		// repeats alone would have filled the page budget.
		if result.RepeatedPages > opts.MaxPages {
			zerolog.Ctx(ctx).Warn().Int("repeated_pages", result.RepeatedPages).Msg("too many repeated pages, stopping search")
			break
		}

		page, err := s.platform.ListVideos(ctx, start, end, token)
		if err != nil {
			metrics.FetchErrors.WithLabelValues("search").Inc()
			s.logResult(ctx, result)
			return result, errors.Join(firstErr, fmt.Errorf("list videos: %w", err))
		}

		if isRepeatedPage(prev, page) {
			result.RepeatedPages++
			metrics.RepeatedPages.Inc()
			token = page.NextPageToken
			continue
		}
		prev = page
		token = page.NextPageToken
		result.Pages++

		candidates := make([]model.Candidate, 0, len(page.Items))
		for _, c := range page.Items {
			if _, ok := seen[c.VideoID]; ok || c.VideoID == "" {
				continue
			}
			seen[c.VideoID] = struct{}{}
			c.Source = model.SourceYouTube
			candidates = append(candidates, c)
		}
		if err := s.process(ctx, candidates, result); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logResult(ctx, result)
	return result, firstErr
}

// isRepeatedPage reports whether every id of prev also appears in page.
func isRepeatedPage(prev, page *model.SearchPage) bool {
	if prev == nil || len(prev.Items) == 0 {
		return false
	}
	ids := make(map[string]struct{}, len(page.Items))
	for _, c := range page.Items {
		ids[c.VideoID] = struct{}{}
	}
	for _, c := range prev.Items {
		if _, ok := ids[c.VideoID]; !ok {
			return false
		}
	}
	return true
}

// process runs candidates through a bounded pool. Per-candidate failures are
// logged and never cancel siblings; the first one is returned after the pool
// drains.
func (s *DiscoveryService) process(ctx context.Context, candidates []model.Candidate, result *DiscoveryResult) error {
	var (
		mu       sync.Mutex
		firstErr error
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, c := range candidates {
		g.Go(func() error {
			outcome, err := s.processCandidate(ctx, c)
			metrics.CandidatesTotal.WithLabelValues(string(c.Source), string(outcome)).Inc()

			mu.Lock()
			defer mu.Unlock()
			result.Candidates++
			result.Outcomes[outcome]++
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("video_id", c.VideoID).Str("source", string(c.Source)).
					Msg("candidate failed")
				if firstErr == nil {
					firstErr = err
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return firstErr
}

// processCandidate is the per-candidate pipeline. The blacklist is always
// consulted first, before any store or platform round trip.
func (s *DiscoveryService) processCandidate(ctx context.Context, c model.Candidate) (Outcome, error) {
	listed, err := s.blacklist.IsBlacklisted(ctx, c.VideoID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("blacklist lookup: %w", err)
	}
	if listed {
		return OutcomeKnown, nil
	}

	if c.LiveBroadcast {
		if err := s.blacklist.Add(ctx, c.VideoID); err != nil {
			return OutcomeFailed, fmt.Errorf("blacklist live broadcast: %w", err)
		}
		return OutcomeBlacklisted, nil
	}

	exists, err := s.store.Exists(ctx, c.VideoID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("existence check: %w", err)
	}
	if exists {
		return OutcomeKnown, nil
	}

	video, channel, err := s.fetch(ctx, c)
	if err != nil {
		return OutcomeFailed, err
	}

	switch Classify(video, channel) {
	case DecisionBlacklist:
		if err := s.blacklist.Add(ctx, c.VideoID); err != nil {
			return OutcomeFailed, fmt.Errorf("blacklist: %w", err)
		}
		return OutcomeBlacklisted, nil
	case DecisionPersist:
		rec := model.NewVideo(c.Source, *video, *channel, s.now())
		if err := s.store.Create(ctx, rec); err != nil {
			if errors.Is(err, repository.ErrDuplicateVideo) {
				return OutcomeDuplicate, nil
			}
			return OutcomeFailed, fmt.Errorf("create video: %w", err)
		}
		zerolog.Ctx(ctx).Info().Str("video_id", c.VideoID).Str("source", string(c.Source)).Msg("video persisted")
		return OutcomePersisted, nil
	default:
		return OutcomeSkipped, nil
	}
}

// fetch loads the candidate's video and channel details. Search results carry
// the channel id, so both lookups run together; otherwise the channel id comes
// from the video metadata.
func (s *DiscoveryService) fetch(ctx context.Context, c model.Candidate) (*model.VideoDetails, *model.ChannelDetails, error) {
	var (
		videos   map[string]model.VideoDetails
		channels map[string]model.ChannelDetails
	)

	if c.ChannelID != "" {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			videos, err = s.enricher.Videos(gctx, []string{c.VideoID}, true)
			return err
		})
		g.Go(func() (err error) {
			channels, err = s.enricher.Channels(gctx, []string{c.ChannelID})
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, nil, err
		}
	} else {
		var err error
		videos, err = s.enricher.Videos(ctx, []string{c.VideoID}, true)
		if err != nil {
			return nil, nil, err
		}
		v, ok := videos[c.VideoID]
		if !ok || v.ChannelID == "" {
			return nil, nil, nil
		}
		channels, err = s.enricher.Channels(ctx, []string{v.ChannelID})
		if err != nil {
			return nil, nil, err
		}
	}

	var (
		video   *model.VideoDetails
		channel *model.ChannelDetails
	)
	if v, ok := videos[c.VideoID]; ok {
		video = &v
		chID := c.ChannelID
		if chID == "" {
			chID = v.ChannelID
		}
		if ch, ok := channels[chID]; ok {
			channel = &ch
		}
	}
	return video, channel, nil
}

func (s *DiscoveryService) logResult(ctx context.Context, r *DiscoveryResult) {
	evt := zerolog.Ctx(ctx).Info().
		Str("source", string(r.Source)).
		Int("candidates", r.Candidates).
		Int("pages", r.Pages).
		Int("repeated_pages", r.RepeatedPages)
	for outcome, n := range r.Outcomes {
		evt = evt.Int(string(outcome), n)
	}
	evt.Msg("discovery pass complete")
}

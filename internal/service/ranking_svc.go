package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mathieu-neron/tube301/internal/metrics"
	"github.com/mathieu-neron/tube301/internal/model"
)

// RankingService rebuilds the ranked set from the persisted records.
type RankingService struct {
	store       RankingStore
	cache       *RankingCache
	publisher   RankingPublisher
	eligibility Eligibility
	penalties   map[string]float64
	now         func() time.Time
}

// NewRankingService creates a ranking service. publisher may be nil.
func NewRankingService(store RankingStore, cache *RankingCache, publisher RankingPublisher, eligibility Eligibility, penalties map[string]float64) *RankingService {
	return &RankingService{
		store:       store,
		cache:       cache,
		publisher:   publisher,
		eligibility: eligibility,
		penalties:   penalties,
		now:         time.Now,
	}
}

// Run computes a new ranked set, stores it and swaps it into the cache. On any
// failure before the swap the previous set keeps being served.
func (s *RankingService) Run(ctx context.Context) (*model.RankingSet, error) {
	videos, err := s.store.FindRankingCandidates(ctx, s.eligibility.MinSamples, s.eligibility.MinLikes)
	if err != nil {
		return nil, fmt.Errorf("load ranking candidates: %w", err)
	}

	set := s.Rank(videos)

	if err := s.store.ReplaceRankings(ctx, set); err != nil {
		return nil, fmt.Errorf("store rankings: %w", err)
	}
	s.cache.Swap(set)
	metrics.RankedVideos.Set(float64(len(set.Videos)))

	if s.publisher != nil {
		if err := s.publisher.PublishRankings(ctx, set); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("publish rankings failed")
		}
	}

	zerolog.Ctx(ctx).Info().
		Int("candidates", len(videos)).
		Int("ranked", len(set.Videos)).
		Msg("ranking pass complete")
	return set, nil
}

// Rank filters and scores videos into a set ordered by score, highest first.
func (s *RankingService) Rank(videos []model.Video) *model.RankingSet {
	ranked := make([]model.RankedVideo, 0, len(videos))
	for _, v := range videos {
		if !s.eligibility.Eligible(v) {
			continue
		}
		ranked = append(ranked, RankVideo(v, s.penalties))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].VideoID < ranked[j].VideoID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return &model.RankingSet{
		Videos:      ranked,
		GeneratedAt: s.now().UTC().Truncate(time.Microsecond),
		Eligible:    len(ranked),
	}
}

package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/mathieu-neron/tube301/internal/model"
	"github.com/mathieu-neron/tube301/internal/repository"
)

var errUpstream = errors.New("upstream unavailable")

type fakePlatform struct {
	mu sync.Mutex

	pages    []*model.SearchPage // served in order, one per ListVideos call
	videos   map[string]model.VideoDetails
	channels map[string]model.ChannelDetails
	failIDs  map[string]bool // VideoStatistics fails when a batch contains one of these

	listTokens []string
	videoCalls [][]string
}

func (f *fakePlatform) ListVideos(_ context.Context, _, _ time.Time, pageToken string) (*model.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listTokens = append(f.listTokens, pageToken)
	if len(f.pages) == 0 {
		return &model.SearchPage{}, nil
	}
	p := f.pages[0]
	f.pages = f.pages[1:]
	return p, nil
}

func (f *fakePlatform) VideoStatistics(_ context.Context, ids []string, _ bool) ([]model.VideoDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoCalls = append(f.videoCalls, append([]string(nil), ids...))
	var out []model.VideoDetails
	for _, id := range ids {
		if f.failIDs[id] {
			return nil, errUpstream
		}
		if v, ok := f.videos[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakePlatform) ChannelStatistics(_ context.Context, ids []string) ([]model.ChannelDetails, error) {
	var out []model.ChannelDetails
	for _, id := range ids {
		if c, ok := f.channels[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakePlatform) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, call := range f.videoCalls {
		ids = append(ids, call...)
	}
	sort.Strings(ids)
	return ids
}

type fakeBlacklist struct {
	mu     sync.Mutex
	ids    map[string]bool
	checks int
}

func newFakeBlacklist(ids ...string) *fakeBlacklist {
	b := &fakeBlacklist{ids: make(map[string]bool)}
	for _, id := range ids {
		b.ids[id] = true
	}
	return b
}

func (b *fakeBlacklist) IsBlacklisted(_ context.Context, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checks++
	return b.ids[id], nil
}

func (b *fakeBlacklist) Add(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ids[id] = true
	return nil
}

func (b *fakeBlacklist) has(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ids[id]
}

// fakeStore is an in-memory store that mirrors the repository's update
// semantics.
type fakeStore struct {
	mu sync.Mutex

	videos      map[string]*model.Video
	existsCalls int
	// duplicateOnCreate makes Create behave as if another worker won the race.
	duplicateOnCreate bool
	updateErr         map[string]error
	updates           []model.VideoUpdate
	sweepAfter        int // number of updates applied when the sweep ran
	swept             bool
	replaceErr        error
	replaced          *model.RankingSet
	predicted         map[string]int64
}

func newFakeStore(videos ...model.Video) *fakeStore {
	s := &fakeStore{videos: make(map[string]*model.Video), predicted: make(map[string]int64)}
	for i := range videos {
		v := videos[i]
		s.videos[v.VideoID] = &v
	}
	return s
}

func (s *fakeStore) get(id string) *model.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.videos[id]
}

func (s *fakeStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existsCalls++
	_, ok := s.videos[id]
	return ok, nil
}

func (s *fakeStore) Create(_ context.Context, v *model.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[v.VideoID]; ok || s.duplicateOnCreate {
		return repository.ErrDuplicateVideo
	}
	cp := *v
	s.videos[v.VideoID] = &cp
	return nil
}

func (s *fakeStore) FindActiveOnTarget(_ context.Context, target int64) ([]model.Video, error) {
	return s.filter(func(v *model.Video) bool { return v.Active && v.Statistics.ViewCount == target }), nil
}

func (s *fakeStore) FindArchiveCandidates(_ context.Context, createdBefore time.Time) ([]model.Video, error) {
	return s.filter(func(v *model.Video) bool {
		return !v.Active && !v.Archived && !v.CreatedAt.After(createdBefore)
	}), nil
}

func (s *fakeStore) filter(keep func(*model.Video) bool) []model.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Video
	for _, v := range s.videos {
		if keep(v) {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out
}

func (s *fakeStore) ApplyUpdate(_ context.Context, u model.VideoUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[u.VideoID]; err != nil {
		return err
	}
	s.updates = append(s.updates, u)
	v := s.videos[u.VideoID]
	if v == nil {
		return nil
	}
	if u.Statistics != nil {
		v.Statistics = *u.Statistics
	}
	if u.Sample != nil {
		v.HistoricalStatistics = append(v.HistoricalStatistics, *u.Sample)
	}
	v.Active = v.Active && !u.Deactivate
	v.Archived = v.Archived || u.Archive
	v.WasRemoved = v.WasRemoved || u.Removed
	return nil
}

func (s *fakeStore) DeactivateOffTarget(_ context.Context, target int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swept = true
	s.sweepAfter = len(s.updates)
	var n int64
	for _, v := range s.videos {
		if v.Active && v.Statistics.ViewCount != target {
			v.Active = false
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) FindRankingCandidates(_ context.Context, minSamples int, minLikes int64) ([]model.Video, error) {
	return s.filter(func(v *model.Video) bool {
		return v.Active && !v.Archived && v.Statistics.LikeCount >= minLikes && len(v.HistoricalStatistics) >= minSamples
	}), nil
}

func (s *fakeStore) ReplaceRankings(_ context.Context, set *model.RankingSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.replaced = set
	return nil
}

func (s *fakeStore) FindPredictionCandidates(_ context.Context, minSamples int, minLikes int64) ([]model.Video, error) {
	return s.filter(func(v *model.Video) bool {
		return v.Active && v.PredictedViewCount == nil && v.Statistics.LikeCount >= minLikes && len(v.HistoricalStatistics) >= minSamples
	}), nil
}

func (s *fakeStore) SetPredictedViewCount(_ context.Context, id string, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predicted[id] = n
	if v := s.videos[id]; v != nil {
		v.PredictedViewCount = &n
	}
	return nil
}

type fakeLinks struct {
	ids []string
	err error
}

func (l fakeLinks) VideoIDs(context.Context) ([]string, error) {
	return l.ids, l.err
}

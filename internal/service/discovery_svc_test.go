package service

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/mathieu-neron/tube301/internal/model"
)

func details(id string, views int64) model.VideoDetails {
	return model.VideoDetails{
		VideoID:     id,
		ChannelID:   "UC1",
		Title:       "title " + id,
		PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Statistics:  model.Statistics{ViewCount: views, LikeCount: 10},
	}
}

func newPlatform(videos ...model.VideoDetails) *fakePlatform {
	p := &fakePlatform{
		videos:   make(map[string]model.VideoDetails),
		channels: map[string]model.ChannelDetails{"UC1": {ChannelID: "UC1", SubscriberCount: 1000}},
		failIDs:  make(map[string]bool),
	}
	for _, v := range videos {
		p.videos[v.VideoID] = v
	}
	return p
}

func newDiscovery(p *fakePlatform, b *fakeBlacklist, s *fakeStore) *DiscoveryService {
	return NewDiscoveryService(p, NewEnricher(p, 4), b, s, 4)
}

func TestRunSingleShot_ClassifiesCandidates(t *testing.T) {
	platform := newPlatform(
		details("exact301000", 301),
		details("over3010000", 500),
		details("under301000", 100),
	)
	blacklist := newFakeBlacklist("blacklisted")
	store := newFakeStore(model.Video{VideoID: "alreadyKnwn", Active: true})
	svc := newDiscovery(platform, blacklist, store)

	ids := []string{"exact301000", "over3010000", "under301000", "exact301000", "alreadyKnwn", "blacklisted", "missingvid0"}
	res, err := svc.RunSingleShot(context.Background(), model.SourceReddit, fakeLinks{ids: ids})
	if err != nil {
		t.Fatalf("RunSingleShot: %v", err)
	}

	if res.Candidates != 6 {
		t.Errorf("candidates = %d, want 6 (duplicate id collapsed)", res.Candidates)
	}
	want := map[Outcome]int{
		OutcomePersisted:   1,
		OutcomeBlacklisted: 2,
		OutcomeSkipped:     1,
		OutcomeKnown:       2,
	}
	if !reflect.DeepEqual(res.Outcomes, want) {
		t.Errorf("outcomes = %v, want %v", res.Outcomes, want)
	}

	v := store.get("exact301000")
	if v == nil {
		t.Fatal("expected exact-target video to be persisted")
	}
	if v.Source != model.SourceReddit || !v.Active || len(v.HistoricalStatistics) != 1 {
		t.Errorf("unexpected record: %+v", v)
	}
	if !blacklist.has("over3010000") || !blacklist.has("missingvid0") {
		t.Error("expected over-target and unresolvable ids to be blacklisted")
	}
	if blacklist.has("under301000") || store.get("under301000") != nil {
		t.Error("below-target candidate must be left alone")
	}

	// Blacklisted ids never reach the store or the platform.
	if store.existsCalls != 5 {
		t.Errorf("existence checks = %d, want 5", store.existsCalls)
	}
	fetched := platform.fetchedIDs()
	wantFetched := []string{"exact301000", "missingvid0", "over3010000", "under301000"}
	if !reflect.DeepEqual(fetched, wantFetched) {
		t.Errorf("fetched = %v, want %v", fetched, wantFetched)
	}
}

func TestRunSingleShot_DuplicateCreateIsBenign(t *testing.T) {
	platform := newPlatform(details("exact301000", 301))
	store := newFakeStore()
	store.duplicateOnCreate = true
	svc := newDiscovery(platform, newFakeBlacklist(), store)

	res, err := svc.RunSingleShot(context.Background(), model.SourceDigg, fakeLinks{ids: []string{"exact301000"}})
	if err != nil {
		t.Fatalf("duplicate create should not be an error: %v", err)
	}
	if res.Outcomes[OutcomeDuplicate] != 1 {
		t.Errorf("outcomes = %v, want one duplicate", res.Outcomes)
	}
}

func TestRunSingleShot_ScrapeFailure(t *testing.T) {
	svc := newDiscovery(newPlatform(), newFakeBlacklist(), newFakeStore())
	if _, err := svc.RunSingleShot(context.Background(), model.SourceReddit, fakeLinks{err: errUpstream}); err == nil {
		t.Fatal("expected scrape failure to fail the pass")
	}
}

func TestRunSingleShot_FetchFailureIsIsolated(t *testing.T) {
	platform := newPlatform(details("exact301000", 301), details("broken00000", 301))
	platform.failIDs["broken00000"] = true
	store := newFakeStore()
	svc := newDiscovery(platform, newFakeBlacklist(), store)

	res, err := svc.RunSingleShot(context.Background(), model.SourceReddit,
		fakeLinks{ids: []string{"broken00000", "exact301000"}})
	if err == nil {
		t.Error("expected the first hard error to be surfaced")
	}
	if res.Outcomes[OutcomeFailed] != 1 || res.Outcomes[OutcomePersisted] != 1 {
		t.Errorf("outcomes = %v", res.Outcomes)
	}
	if store.get("exact301000") == nil {
		t.Error("sibling candidate should still be persisted")
	}
}

func TestRunPaginated_RepeatedPages(t *testing.T) {
	c := func(id string) model.Candidate { return model.Candidate{VideoID: id, ChannelID: "UC1"} }
	platform := newPlatform(details("aaaaaaaaaaa", 301), details("bbbbbbbbbbb", 200), details("ccccccccccc", 301))
	platform.pages = []*model.SearchPage{
		{Items: []model.Candidate{c("aaaaaaaaaaa"), c("bbbbbbbbbbb")}, NextPageToken: "t1"},
		{Items: []model.Candidate{c("bbbbbbbbbbb"), c("aaaaaaaaaaa")}, NextPageToken: "t2"},
		{Items: []model.Candidate{c("ccccccccccc")}},
	}
	store := newFakeStore()
	svc := newDiscovery(platform, newFakeBlacklist(), store)

	res, err := svc.RunPaginated(context.Background(), SearchOptions{Lookback: time.Hour, MaxPages: 5})
	if err != nil {
		t.Fatalf("RunPaginated: %v", err)
	}

	if res.RepeatedPages != 1 {
		t.Errorf("repeated pages = %d, want 1", res.RepeatedPages)
	}
	if res.Pages != 2 {
		t.Errorf("pages = %d, want 2", res.Pages)
	}
	if want := []string{"", "t1", "t2"}; !reflect.DeepEqual(platform.listTokens, want) {
		t.Errorf("tokens = %v, want %v", platform.listTokens, want)
	}
	if want := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}; !reflect.DeepEqual(platform.fetchedIDs(), want) {
		t.Errorf("fetched = %v, want each id once", platform.fetchedIDs())
	}
	if store.get("aaaaaaaaaaa") == nil || store.get("ccccccccccc") == nil {
		t.Error("expected exact-target videos to be persisted")
	}
	if got := store.get("aaaaaaaaaaa").Source; got != model.SourceYouTube {
		t.Errorf("source = %s, want youTube", got)
	}
}

func TestRunPaginated_StopsAtMaxPages(t *testing.T) {
	platform := newPlatform()
	platform.pages = []*model.SearchPage{
		{Items: []model.Candidate{{VideoID: "aaaaaaaaaaa"}}, NextPageToken: "t1"},
		{Items: []model.Candidate{{VideoID: "bbbbbbbbbbb"}}, NextPageToken: "t2"},
	}
	svc := newDiscovery(platform, newFakeBlacklist(), newFakeStore())

	res, _ := svc.RunPaginated(context.Background(), SearchOptions{Lookback: time.Hour, MaxPages: 1})
	if res.Pages != 1 || len(platform.listTokens) != 1 {
		t.Errorf("pages = %d, calls = %d, want 1 and 1", res.Pages, len(platform.listTokens))
	}
}

func TestRunPaginated_LiveBroadcastRejectedBeforeFetch(t *testing.T) {
	platform := newPlatform(details("liveliveliv", 301))
	platform.pages = []*model.SearchPage{
		{Items: []model.Candidate{{VideoID: "liveliveliv", ChannelID: "UC1", LiveBroadcast: true}}},
	}
	blacklist := newFakeBlacklist()
	store := newFakeStore()
	svc := newDiscovery(platform, blacklist, store)

	if _, err := svc.RunPaginated(context.Background(), SearchOptions{Lookback: time.Hour, MaxPages: 3}); err != nil {
		t.Fatalf("RunPaginated: %v", err)
	}
	if !blacklist.has("liveliveliv") {
		t.Error("live broadcast should be blacklisted")
	}
	if len(platform.fetchedIDs()) != 0 || store.existsCalls != 0 {
		t.Error("live broadcast should be rejected before any lookup")
	}
}

func TestIsRepeatedPage(t *testing.T) {
	page := func(ids ...string) *model.SearchPage {
		p := &model.SearchPage{}
		for _, id := range ids {
			p.Items = append(p.Items, model.Candidate{VideoID: id})
		}
		return p
	}

	tests := []struct {
		name string
		prev *model.SearchPage
		next *model.SearchPage
		want bool
	}{
		{"no previous page", nil, page("a"), false},
		{"empty previous page", page(), page("a"), false},
		{"same ids reordered", page("a", "b"), page("b", "a"), true},
		{"superset", page("a"), page("a", "b"), true},
		{"new id", page("a", "b"), page("a", "c"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRepeatedPage(tt.prev, tt.next); got != tt.want {
				t.Errorf("isRepeatedPage = %v, want %v", got, tt.want)
			}
		})
	}
}

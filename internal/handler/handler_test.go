package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/mathieu-neron/tube301/internal/model"
	"github.com/mathieu-neron/tube301/internal/repository"
	"github.com/mathieu-neron/tube301/internal/service"
)

type fakeReader struct {
	videos map[string]*model.Video
	calls  int
}

func (f *fakeReader) FindByVideoID(_ context.Context, videoID string) (*model.Video, error) {
	f.calls++
	if v, ok := f.videos[videoID]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReader) Stats(context.Context) (*model.StatsResponse, error) {
	return &model.StatsResponse{TotalVideos: len(f.videos), ActiveVideos: len(f.videos)}, nil
}

type fakeJobs struct {
	states []service.JobState
}

func (f fakeJobs) Snapshot() []service.JobState { return f.states }

func (f fakeJobs) Job(name string) (service.JobState, bool) {
	for _, s := range f.states {
		if s.Name == name {
			return s, true
		}
	}
	return service.JobState{}, false
}

func newTestApp(reader *fakeReader, rankings *service.RankingCache) *fiber.App {
	videoSvc := service.NewVideoService(reader, service.NewCacheService(nil, zerolog.Nop()), rankings, nil)
	video := NewVideoHandler(videoSvc)
	ranking := NewRankingHandler(rankings)
	stats := NewStatsHandler(videoSvc)
	jobs := NewJobsHandler(fakeJobs{states: []service.JobState{{Name: "update", Runs: 3}}})

	app := fiber.New()
	app.Get("/api/rankings", ranking.List)
	app.Get("/api/videos/:videoId", video.GetByPath)
	app.Get("/api/videos", video.GetByVideoID)
	app.Get("/api/stats", stats.GetStats)
	app.Get("/api/jobs", jobs.List)
	app.Get("/api/jobs/:name", jobs.Get)
	return app
}

func rankedSet(n int) *model.RankingSet {
	set := &model.RankingSet{GeneratedAt: time.Now().UTC(), Eligible: n}
	for i := 0; i < n; i++ {
		set.Videos = append(set.Videos, model.RankedVideo{Rank: i + 1, VideoID: "vid" + string(rune('a'+i))})
	}
	return set
}

func TestRoutes_StatusCodes(t *testing.T) {
	reader := &fakeReader{videos: map[string]*model.Video{
		"dQw4w9WgXcQ": {VideoID: "dQw4w9WgXcQ", Title: "known"},
	}}
	rankings := service.NewRankingCache()
	rankings.Swap(rankedSet(3))
	app := newTestApp(reader, rankings)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"rankings default", "/api/rankings", 200},
		{"rankings limit", "/api/rankings?limit=2", 200},
		{"rankings bad limit", "/api/rankings?limit=0", 400},
		{"rankings limit too large", "/api/rankings?limit=500", 400},
		{"video by path", "/api/videos/dQw4w9WgXcQ", 200},
		{"video by query", "/api/videos?videoId=dQw4w9WgXcQ", 200},
		{"video missing param", "/api/videos", 400},
		{"video invalid id", "/api/videos/bad%20id", 400},
		{"video not found", "/api/videos/AAAAAAAAAAA", 404},
		{"stats", "/api/stats", 200},
		{"jobs", "/api/jobs", 200},
		{"job by name", "/api/jobs/update", 200},
		{"unknown job", "/api/jobs/nope", 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestRankingList_AppliesLimit(t *testing.T) {
	rankings := service.NewRankingCache()
	rankings.Swap(rankedSet(5))
	app := newTestApp(&fakeReader{}, rankings)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/rankings?limit=2", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var body struct {
		Eligible int                 `json:"eligible"`
		Videos   []model.RankedVideo `json:"videos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(body.Videos))
	}
	if body.Videos[0].Rank != 1 || body.Videos[1].Rank != 2 {
		t.Errorf("unexpected ranks %d, %d", body.Videos[0].Rank, body.Videos[1].Rank)
	}
	if body.Eligible != 5 {
		t.Errorf("eligible = %d, want 5", body.Eligible)
	}
}

func TestRankingList_EmptyBeforeFirstPass(t *testing.T) {
	app := newTestApp(&fakeReader{}, service.NewRankingCache())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/rankings", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var body struct {
		Videos []model.RankedVideo `json:"videos"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Videos == nil || len(body.Videos) != 0 {
		t.Errorf("expected an empty list, got %v", body.Videos)
	}
}

func TestStats_IncludesRankingSize(t *testing.T) {
	rankings := service.NewRankingCache()
	rankings.Swap(rankedSet(4))
	reader := &fakeReader{videos: map[string]*model.Video{"a": {}, "b": {}}}
	app := newTestApp(reader, rankings)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/stats", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var stats model.StatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalVideos != 2 || stats.RankedVideos != 4 {
		t.Errorf("got total=%d ranked=%d, want 2 and 4", stats.TotalVideos, stats.RankedVideos)
	}
}

func TestSanitizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"/api/videos/dQw4w9WgXcQ": "/api/videos/:videoId",
		"/api/jobs/update":        "/api/jobs/:name",
		"/api/rankings":           "/api/rankings",
		"/api/videos":             "/api/videos",
	}
	for in, want := range tests {
		if got := sanitizeEndpoint(in); got != want {
			t.Errorf("sanitizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

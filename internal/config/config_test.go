package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset uses fallback", "", time.Minute},
		{"bare seconds", "90", 90 * time.Second},
		{"go duration", "5m", 5 * time.Minute},
		{"garbage uses fallback", "soon", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.YouTube.MaxPages != 10 || cfg.Lifecycle.BatchSize != 50 {
		t.Errorf("unexpected defaults: max pages %d, batch %d", cfg.YouTube.MaxPages, cfg.Lifecycle.BatchSize)
	}
	if len(cfg.Reddit.Pages) != len(DefaultSubreddits) {
		t.Errorf("got %d reddit pages, want %d", len(cfg.Reddit.Pages), len(DefaultSubreddits))
	}
	if cfg.Ranking.CategoryPenalties["20"] != 0.05 {
		t.Errorf("gaming penalty = %v, want 0.05", cfg.Ranking.CategoryPenalties["20"])
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tube301.yaml")
	body := `
subreddits: [videos, " ", music]
digg:
  enabled: false
ranking:
  min_likes: 10
  title_denylist: [trailer]
  category_penalties:
    "10": 0.1
prediction:
  enabled: true
  url: http://predict.local/score
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"https://old.reddit.com/r/videos/new/", "https://old.reddit.com/r/music/new/"}
	if len(cfg.Reddit.Pages) != len(want) || cfg.Reddit.Pages[0] != want[0] || cfg.Reddit.Pages[1] != want[1] {
		t.Errorf("reddit pages = %v, want %v", cfg.Reddit.Pages, want)
	}
	if cfg.Digg.Enabled {
		t.Error("digg should be disabled by the overlay")
	}
	if cfg.Ranking.MinLikes != 10 || len(cfg.Ranking.TitleDenylist) != 1 {
		t.Errorf("ranking overlay not applied: %+v", cfg.Ranking)
	}
	if _, ok := cfg.Ranking.CategoryPenalties["20"]; ok {
		t.Error("category penalties should be replaced, not merged")
	}
	if !cfg.Prediction.Enabled || cfg.Prediction.URL != "http://predict.local/score" {
		t.Errorf("prediction overlay not applied: %+v", cfg.Prediction)
	}
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		t.Setenv("CONFIG_FILE", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no database", func(c *Config) { c.DatabaseURL = " " }},
		{"zero concurrency", func(c *Config) { c.YouTube.Concurrency = 0 }},
		{"zero pages", func(c *Config) { c.YouTube.MaxPages = 0 }},
		{"zero cooldown", func(c *Config) { c.UpdateCooldown = 0 }},
		{"oversized batch", func(c *Config) { c.Lifecycle.BatchSize = 51 }},
		{"prediction without url", func(c *Config) { c.Prediction.Enabled = true; c.Prediction.URL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

package middleware

import "testing"

func TestSanitizePath(t *testing.T) {
	tests := map[string]string{
		"/api/videos/dQw4w9WgXcQ": "/api/videos/:videoId",
		"/api/jobs/update":        "/api/jobs/:name",
		"/api/rankings":           "/api/rankings",
		"/health/ready":           "/health/ready",
	}
	for in, want := range tests {
		if got := sanitizePath(in); got != want {
			t.Errorf("sanitizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"*"}},
		{"*", []string{"*"}},
		{"https://a.example, https://b.example,", []string{"https://a.example", "https://b.example"}},
	}
	for _, tt := range tests {
		got := splitOrigins(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitOrigins(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitOrigins(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

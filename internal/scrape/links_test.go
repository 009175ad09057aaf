package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/net/html"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		raw    string
		wantID string
		wantOK bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtube.com/watch?feature=share&v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"http://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ", true},
		{"//www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ/", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/channel/UC123", "", false},
		{"https://www.youtube.com/watch?v=short", "", false},
		{"https://vimeo.com/123456", "", false},
		{"/r/videos/comments/abc", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, ok := VideoID(tt.raw)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("VideoID(%q) = (%q, %v), want (%q, %v)", tt.raw, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	page := `<html><body>
		<a href="https://www.youtube.com/watch?v=aaaaaaaaaaa">one</a>
		<a href="https://youtu.be/bbbbbbbbbbb">two</a>
		<a href="https://www.youtube.com/watch?v=aaaaaaaaaaa">dup</a>
		<iframe src="https://www.youtube.com/embed/ccccccccccc"></iframe>
		<div data-contenturl="https://youtu.be/ddddddddddd"></div>
		<a href="https://example.com/article">not a video</a>
		<span class="next-button"><a rel="nofollow next" href="/r/videos/new/?after=t3_x">next</a></span>
	</body></html>`

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	ids, next := Extract(doc)

	want := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc", "ddddddddddd"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if next != "/r/videos/new/?after=t3_x" {
		t.Errorf("next = %q", next)
	}
}

func TestLinkScraper_FollowsNextPages(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Query().Get("page") {
		case "":
			fmt.Fprint(w, `<a href="https://youtu.be/aaaaaaaaaaa"></a><a rel="next" href="?page=2"></a>`)
		case "2":
			fmt.Fprint(w, `<a href="https://youtu.be/bbbbbbbbbbb"></a><a rel="next" href="?page=3"></a>`)
		default:
			fmt.Fprint(w, `<a href="https://youtu.be/ccccccccccc"></a>`)
		}
	}))
	defer srv.Close()

	s := New(Options{Pages: []string{srv.URL + "/"}, MaxPages: 2, Concurrency: 1})
	ids, err := s.VideoIDs(context.Background())
	if err != nil {
		t.Fatalf("VideoIDs: %v", err)
	}
	if want := []string{"aaaaaaaaaaa", "bbbbbbbbbbb"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("hits = %d, want 2", n)
	}
}

func TestLinkScraper_AllPagesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New(Options{Pages: []string{srv.URL + "/a", srv.URL + "/b"}, Concurrency: 2})
	if _, err := s.VideoIDs(context.Background()); err == nil {
		t.Fatal("expected error when every page fails")
	}
}

func TestLinkScraper_PartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<a href="https://www.youtube.com/watch?v=aaaaaaaaaaa"></a>`)
	}))
	defer srv.Close()

	s := New(Options{Pages: []string{srv.URL + "/good", srv.URL + "/bad"}, Concurrency: 2})
	ids, err := s.VideoIDs(context.Background())
	if err != nil {
		t.Fatalf("VideoIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "aaaaaaaaaaa" {
		t.Errorf("ids = %v", ids)
	}
}

// Package scrape collects YouTube video ids linked from aggregator pages.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"
)

const (
	userAgent   = "tube301-crawler/1.0"
	maxBodySize = 5 << 20
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Options configures a LinkScraper.
type Options struct {
	// Pages are the entry points. Each one is followed through its "next"
	// links for up to MaxPages pages.
	Pages       []string
	MaxPages    int
	Concurrency int
	Client      *http.Client
}

// LinkScraper fetches aggregator pages and extracts the video ids they link
// to or embed.
type LinkScraper struct {
	opts Options
}

func New(opts Options) *LinkScraper {
	if opts.MaxPages < 1 {
		opts.MaxPages = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	return &LinkScraper{opts: opts}
}

// VideoIDs scrapes every configured page. A failing entry point is logged
// and skipped; an error is returned only when every entry point failed.
func (s *LinkScraper) VideoIDs(ctx context.Context) ([]string, error) {
	var (
		mu     sync.Mutex
		ids    = make(map[string]struct{})
		failed int
		errs   []error
	)

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for _, start := range s.opts.Pages {
		g.Go(func() error {
			found, err := s.follow(ctx, start)

			mu.Lock()
			defer mu.Unlock()
			for _, id := range found {
				ids[id] = struct{}{}
			}
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("page", start).Msg("scrape failed")
				failed++
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(s.opts.Pages) > 0 && failed == len(s.opts.Pages) {
		return nil, fmt.Errorf("all %d pages failed: %w", failed, errors.Join(errs...))
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// follow scrapes start and its successors. Ids found before a failure are
// still returned.
func (s *LinkScraper) follow(ctx context.Context, start string) ([]string, error) {
	var ids []string
	next := start
	for page := 0; page < s.opts.MaxPages && next != ""; page++ {
		base, err := url.Parse(next)
		if err != nil {
			return ids, fmt.Errorf("parse %q: %w", next, err)
		}
		doc, err := s.fetch(ctx, base.String())
		if err != nil {
			return ids, err
		}
		found, nextHref := Extract(doc)
		ids = append(ids, found...)

		next = ""
		if nextHref != "" {
			if ref, err := base.Parse(nextHref); err == nil {
				next = ref.String()
			}
		}
	}
	return ids, nil
}

func (s *LinkScraper) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d", pageURL, resp.StatusCode)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// Extract walks a parsed page and returns the distinct video ids found in
// link, embed and data attributes, in document order, plus the href of the
// page's rel="next" link if any.
func Extract(doc *html.Node) (ids []string, next string) {
	seen := make(map[string]struct{})
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch a.Key {
				case "href", "src", "data-url", "data-contenturl":
					if id, ok := VideoID(a.Val); ok {
						if _, dup := seen[id]; !dup {
							seen[id] = struct{}{}
							ids = append(ids, id)
						}
					}
				}
			}
			if next == "" && n.DataAtom == atom.A && isNextLink(n) {
				next = attr(n, "href")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return ids, next
}

func isNextLink(n *html.Node) bool {
	for _, rel := range strings.Fields(attr(n, "rel")) {
		if strings.EqualFold(rel, "next") {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// VideoID extracts the video id from a YouTube watch, short, embed or
// youtu.be URL.
func VideoID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		case strings.HasPrefix(u.Path, "/v/"):
			id = strings.TrimPrefix(u.Path, "/v/")
		}
	default:
		return "", false
	}

	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	if !videoIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

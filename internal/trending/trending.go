package trending

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/trendblog/internal/types"
)

// DefaultBaseURL is the GitHub trending page.
const DefaultBaseURL = "https://github.com/trending"

// DefaultUserAgent identifies the scraper to GitHub.
const DefaultUserAgent = "Mozilla/5.0 (compatible; trendblog/1.0)"

// Period selects the trending window.
type Period string

// Trending windows supported by GitHub.
const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Options configures a Scraper.
type Options struct {
	// BaseURL overrides the trending page URL (tests).
	BaseURL string
	// Period is the trending window. Defaults to weekly.
	Period Period
	// Language filters by language; empty means all languages.
	Language string
	// Limit caps the number of repositories returned. Defaults to 18.
	Limit int
	// Timeout bounds each HTTP request. Defaults to 10s.
	Timeout time.Duration
	// MaxAttempts is the fetch retry budget. Defaults to 3.
	MaxAttempts int
}

// Scraper fetches and parses the trending page.
type Scraper struct {
	opts       Options
	httpClient *http.Client

	sleep func(ctx context.Context, d time.Duration) error
}

// NewScraper constructs a Scraper.
func NewScraper(opts Options) *Scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Period == "" {
		opts.Period = PeriodWeekly
	}
	if opts.Limit <= 0 {
		opts.Limit = 18
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Scraper{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		sleep:      sleepCtx,
	}
}

// Fetch retrieves the trending page and returns the ranked repository
// list, preserving page order. Transient fetch failures are retried with
// doubling delays.
func (s *Scraper) Fetch(ctx context.Context) ([]types.TrendingRepo, error) {
	var lastErr error
	delay := 2 * time.Second

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		html, err := s.fetchPage(ctx)
		if err == nil {
			return Parse(strings.NewReader(html), s.opts.Limit)
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < s.opts.MaxAttempts {
			if err := s.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay *= 2
		}
	}
	return nil, &ScrapeError{
		Message: fmt.Sprintf("fetch failed after %d attempts", s.opts.MaxAttempts),
		Cause:   lastErr,
	}
}

func (s *Scraper) fetchPage(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.BaseURL, nil)
	if err != nil {
		return "", &ScrapeError{Message: "failed to create request", Cause: err}
	}

	q := req.URL.Query()
	q.Set("since", string(s.opts.Period))
	if s.opts.Language != "" {
		q.Set("language", s.opts.Language)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &ScrapeError{Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &ScrapeError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ScrapeError{Message: "failed to read response body", Cause: err}
	}
	return string(body), nil
}

// Parse extracts up to limit repositories from trending page HTML in page
// order. GitHub occasionally reshuffles its markup, so a fallback
// selector is tried before giving up.
func Parse(r io.Reader, limit int) ([]types.TrendingRepo, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ScrapeError{Message: "failed to parse HTML", Cause: err}
	}

	links := doc.Find("article.Box-row h2 a")
	if links.Length() == 0 {
		links = doc.Find("h2.h3 a")
	}

	var repos []types.TrendingRepo
	links.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, exists := sel.Attr("href")
		if !exists {
			return true
		}
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "/") {
			return true
		}

		parts := strings.Split(strings.TrimPrefix(href, "/"), "/")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return true
		}

		repos = append(repos, types.TrendingRepo{
			Owner:    parts[0],
			Repo:     parts[1],
			FullName: parts[0] + "/" + parts[1],
		})
		return len(repos) < limit
	})

	if len(repos) == 0 {
		return nil, &ScrapeError{Message: "no repositories found; page structure may have changed"}
	}
	return repos, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package ghapi is a minimal GitHub REST API client for fetching README
// content and repository metadata.
package ghapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/trendblog/internal/types"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

const userAgent = "trendblog/1.0"

// APIError represents a non-success response from the GitHub API.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github api error: status %d for %s", e.StatusCode, e.URL)
}

// retryable reports whether the request may succeed on another attempt.
// 403 covers the API's rate-limit responses.
func (e *APIError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusForbidden
}

// Options configures a Client.
type Options struct {
	// BaseURL overrides the API root (tests).
	BaseURL string
	// Token is an optional PAT; without it the unauthenticated rate
	// limit applies.
	Token string
	// Timeout bounds each HTTP request. Defaults to 10s.
	Timeout time.Duration
	// Concurrency caps parallel repository fetches. Defaults to 5.
	Concurrency int
	// MaxAttempts is the per-request retry budget. Defaults to 3.
	MaxAttempts int
}

// Client fetches repository data from the GitHub REST API.
type Client struct {
	opts       Options
	httpClient *http.Client

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient constructs a Client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		sleep:      sleepCtx,
	}
}

// FetchCandidates fetches README and metadata for every repository with
// bounded concurrency, returning complete candidates in input order.
// Repositories that 404 or keep failing after the retry budget are
// dropped, not fatal: one broken trending entry must not sink the whole
// run. Only context cancellation aborts the batch.
func (c *Client) FetchCandidates(ctx context.Context, repos []types.TrendingRepo) ([]types.Candidate, error) {
	results := make([]*types.Candidate, len(repos))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			candidate, err := c.fetchOne(ctx, repo)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				_, _ = fmt.Fprintf(os.Stderr, "Warning: skipping %s: %v\n", repo.FullName, err)
				return nil
			}
			mu.Lock()
			results[i] = candidate
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(repos))
	for _, r := range results {
		if r != nil {
			candidates = append(candidates, *r)
		}
	}
	return candidates, nil
}

// fetchOne combines the readme and metadata lookups for one repository.
// A nil candidate with nil error means the repository was skipped.
func (c *Client) fetchOne(ctx context.Context, repo types.TrendingRepo) (*types.Candidate, error) {
	readme, err := c.fetchReadme(ctx, repo.Owner, repo.Repo)
	if err != nil {
		return nil, err
	}
	if readme == nil {
		return nil, nil
	}

	meta, err := c.fetchMeta(ctx, repo.Owner, repo.Repo)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	return &types.Candidate{
		Owner:         repo.Owner,
		Repo:          repo.Repo,
		FullName:      repo.FullName,
		ReadmeSHA:     readme.sha,
		ReadmeContent: readme.content,
		Stars:         meta.Stars,
		License:       meta.License,
		LastPush:      meta.LastPush,
	}, nil
}

type readmeData struct {
	sha     string
	content string
}

// Meta holds repository metadata; fields stay nil when GitHub omits them.
type Meta struct {
	Stars    *int
	License  *string
	LastPush *time.Time
}

// fetchReadme retrieves the repository README. A nil result means the
// repository has no README (404).
func (c *Client) fetchReadme(ctx context.Context, owner, repo string) (*readmeData, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/readme", c.opts.BaseURL, owner, repo)

	var payload struct {
		SHA      string `json:"sha"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	found, err := c.getJSON(ctx, url, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch README for %s/%s: %w", owner, repo, err)
	}
	if !found {
		return nil, nil
	}

	content, err := decodeContent(payload.Content, payload.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to decode README for %s/%s: %w", owner, repo, err)
	}
	return &readmeData{sha: payload.SHA, content: content}, nil
}

// fetchMeta retrieves stars, license, and last-push metadata. A nil
// result means the repository was not found.
func (c *Client) fetchMeta(ctx context.Context, owner, repo string) (*Meta, error) {
	url := fmt.Sprintf("%s/repos/%s/%s", c.opts.BaseURL, owner, repo)

	var payload struct {
		StargazersCount *int `json:"stargazers_count"`
		License         *struct {
			Name string `json:"name"`
		} `json:"license"`
		PushedAt *time.Time `json:"pushed_at"`
	}
	found, err := c.getJSON(ctx, url, &payload)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s/%s: %w", owner, repo, err)
	}
	if !found {
		return nil, nil
	}

	meta := &Meta{Stars: payload.StargazersCount, LastPush: payload.PushedAt}
	if payload.License != nil && payload.License.Name != "" {
		meta.License = &payload.License.Name
	}
	return meta, nil
}

// getJSON performs a GET with auth headers and bounded retries.
// found=false without error reports a 404.
func (c *Client) getJSON(ctx context.Context, url string, out any) (bool, error) {
	var lastErr error
	delay := 2 * time.Second

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		found, err := c.getOnce(ctx, url, out)
		if err == nil {
			return found, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		apiErr, ok := err.(*APIError)
		if ok && !apiErr.retryable() {
			return false, err
		}
		if attempt < c.opts.MaxAttempts {
			if err := c.sleep(ctx, delay); err != nil {
				return false, err
			}
			delay *= 2
		}
	}
	return false, fmt.Errorf("request failed after %d attempts: %w", c.opts.MaxAttempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, &APIError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return true, nil
}

// decodeContent decodes the API's base64 README payload. GitHub inserts
// newlines into the encoded text, which the decoder must ignore.
func decodeContent(content, encoding string) (string, error) {
	if encoding != "base64" {
		return content, nil
	}
	cleaned := strings.ReplaceAll(content, "\n", "")
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
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

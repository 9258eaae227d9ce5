package publish

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/trendblog/internal/db"
)

//go:embed post.schema.json
var postSchemaJSON []byte

// Client posts articles to the blog API. It retries server and transport
// failures within a single dispatch; a dispatch that still fails is
// terminal for the article.
type Client struct {
	endpoint       string
	apiKey         string
	headerImageURL string
	httpClient     *http.Client
	maxAttempts    int
	baseDelay      time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Options configures a Client.
type Options struct {
	// Endpoint is the blog API URL.
	Endpoint string
	// APIKey is sent as the x-api-key header.
	APIKey string
	// HeaderImageURL, when set, decorates every post.
	HeaderImageURL string
	// Timeout bounds each HTTP request. Defaults to 30s.
	Timeout time.Duration
	// MaxAttempts is the per-dispatch attempt budget. Defaults to 3.
	MaxAttempts int
}

// NewClient constructs a blog API client.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Client{
		endpoint:       opts.Endpoint,
		apiKey:         opts.APIKey,
		headerImageURL: opts.HeaderImageURL,
		httpClient:     &http.Client{Timeout: opts.Timeout},
		maxAttempts:    opts.MaxAttempts,
		baseDelay:      time.Second,
		sleep:          sleepCtx,
		now:            time.Now,
	}
}

// Publish dispatches one article. A nil return means the endpoint accepted
// the post; any error means the dispatch is terminally failed.
func (c *Client) Publish(ctx context.Context, article *db.Article) error {
	post := BuildPost(article, c.headerImageURL, c.now())
	body, err := json.Marshal(post)
	if err != nil {
		return &PublishError{Message: "failed to marshal payload", Cause: err}
	}

	if err := validatePayload(body); err != nil {
		return err
	}

	var lastErr *PublishError
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.postOnce(ctx, body)
		if lastErr == nil {
			return nil
		}
		if !lastErr.retryable() || attempt == c.maxAttempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.sleep(ctx, c.baseDelay<<(attempt-1)); err != nil {
			return err
		}
	}
	return lastErr
}

// postOnce performs a single HTTP POST of the prepared payload.
func (c *Client) postOnce(ctx context.Context, body []byte) *PublishError {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &PublishError{Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &PublishError{Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &PublishError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(respBody)),
	}
}

// validatePayload checks the payload against the embedded post schema
// before it leaves the process.
func validatePayload(body []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(postSchemaJSON),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return &PublishError{Message: "schema validation failed to run", Cause: err}
	}
	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return &PublishError{Message: "payload does not match post schema: " + strings.Join(details, "; ")}
	}
	return nil
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

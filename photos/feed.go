package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mbroe/fotostrom/metrics"
	"github.com/mmcdole/gofeed"
)

// FetchOptions is the fixed, implementation-wide fetch configuration. It is
// set once at construction, not tunable per call.
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
}

type httpFeedClient struct {
	client    *http.Client
	userAgent string
}

func NewFeedClient(opts FetchOptions) FeedClient {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "fotostrom/1.0"
	}
	return &httpFeedClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (c *httpFeedClient) Fetch(ctx context.Context, feedUrl string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedUrl, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get %v: %w", feedUrl, err)
	}
	defer resp.Body.Close()
	metrics.FeedFetchStatusInc(resp.StatusCode, feedUrl)
	if resp.StatusCode > 299 {
		return nil, fmt.Errorf("got non-success status code %v from %v", resp.StatusCode, feedUrl)
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %v: %w", feedUrl, err)
	}
	fp := gofeed.NewParser()
	feed, err := fp.ParseString(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %v: %w", feedUrl, err)
	}
	return feed, nil
}

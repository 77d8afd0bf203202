package monitor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"sitewatch/config"
)

// Client is the HTTP client for a single site. It enforces the site's
// politeness interval between consecutive requests and retries transient
// failures with exponential backoff. Each site run owns its own Client, so
// parallel sites never throttle each other.
type Client struct {
	http      *http.Client
	userAgent string
	interval  time.Duration
	retry     config.RetryPolicy

	mu   sync.Mutex
	last time.Time
}

// NewClient creates a client for one site.
func NewClient(interval, timeout time.Duration, userAgent string, retry config.RetryPolicy) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
		interval:  interval,
		retry:     retry,
	}
}

// Fetch downloads a URL, waiting out the politeness interval first and
// retrying timeouts and retryable status codes up to the policy's attempt
// limit. Cancellation is honored between attempts.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, c.retry.Delay(attempt-1)); err != nil {
				return nil, err
			}
		}
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.fetchOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// fetchOnce issues a single request. The second return value reports whether
// the failure is worth retrying.
func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	// Some publishers reject requests without browser-like headers.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.http.Do(req)
	c.markRequest()
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		// Timeouts and connection errors are transient.
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, isRetryableStatus(resp.StatusCode),
			fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, false, nil
}

// throttle blocks until the politeness interval since the previous request
// to this site has elapsed.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	wait := c.interval - time.Since(c.last)
	c.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	return sleepCtx(ctx, wait)
}

func (c *Client) markRequest() {
	c.mu.Lock()
	c.last = time.Now()
	c.mu.Unlock()
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, // 408
		http.StatusTooManyRequests: // 429
		return true
	}
	return statusCode >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

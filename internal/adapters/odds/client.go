// Package odds fetches moneyline reference odds from The Odds API.
package odds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.the-odds-api.com/v4"

	// The feed is quota-billed per request, not throttled; one call per
	// second is plenty for a handful of sports per cycle.
	ratePerSec = 1

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// ErrNoAPIKey is returned when FetchOdds runs without a key.
var ErrNoAPIKey = errors.New("odds: API key not configured")

// Client is the odds feed HTTP client with rate limiting and retries.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	removeVig bool
	regions   string
	limiter   *rate.Limiter
	retryWait time.Duration
}

// NewClient creates a Client. An empty baseURL uses production.
func NewClient(baseURL, apiKey string, removeVig bool) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		baseURL:   baseURL,
		apiKey:    apiKey,
		removeVig: removeVig,
		regions:   "us",
		limiter:   rate.NewLimiter(ratePerSec, 3),
		retryWait: baseRetryWait,
	}
}

// SetRetryWait overrides the base backoff between retries.
func (c *Client) SetRetryWait(d time.Duration) {
	c.retryWait = d
}

// get does a GET with rate limiting and retries.
func (c *Client) get(ctx context.Context, u string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry runs fn with exponential backoff on 429 and 5xx.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("HTTP %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("odds: retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		if remaining := resp.Header.Get("x-requests-remaining"); remaining != "" {
			slog.Debug("odds: quota", "remaining", remaining, "used", resp.Header.Get("x-requests-used"))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep waits with exponential backoff, honouring ctx.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func (c *Client) oddsURL(sportKey string) string {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("regions", c.regions)
	q.Set("markets", "h2h")
	q.Set("oddsFormat", "american")
	return c.baseURL + "/sports/" + url.PathEscape(sportKey) + "/odds?" + q.Encode()
}

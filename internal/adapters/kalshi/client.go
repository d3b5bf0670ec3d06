// Package kalshi is the venue adapter: public market data plus the signed
// portfolio and order endpoints of the Kalshi trade API.
package kalshi

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

	// Basic tier: 20 reads/s and 10 writes/s, kept at ~60%.
	readRatePerSec  = 12
	writeRatePerSec = 6

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// ErrNoCredentials is returned by signed endpoints when no key is loaded.
var ErrNoCredentials = errors.New("kalshi: API key not configured")

// APIError is a non-retryable error response from the exchange.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	var kind string
	switch e.Status {
	case http.StatusNotFound:
		kind = "not found"
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = "unauthorized"
	case http.StatusBadRequest:
		kind = "bad request"
	case http.StatusConflict:
		kind = "conflict"
	default:
		kind = fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("kalshi: %s: %s (%s)", kind, e.Message, e.Code)
}

// Client is the Kalshi REST client with rate limiting, retries and RSA-PSS
// request signing.
type Client struct {
	http         *http.Client
	baseURL      string
	apiKeyID     string
	privateKey   *rsa.PrivateKey
	readLimiter  *rate.Limiter
	writeLimiter *rate.Limiter
	retryWait    time.Duration
}

// NewClient creates a Client. An empty baseURL uses production.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		readLimiter:  rate.NewLimiter(readRatePerSec, 5),
		writeLimiter: rate.NewLimiter(writeRatePerSec, 2),
		retryWait:    baseRetryWait,
	}
}

// SetRetryWait overrides the base backoff between retries.
func (c *Client) SetRetryWait(d time.Duration) {
	c.retryWait = d
}

// SetCredentials configures signed access from an API key id and a
// PEM-encoded RSA private key (PKCS#8 or PKCS#1).
func (c *Client) SetCredentials(apiKeyID string, pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("kalshi.SetCredentials: no PEM block found in private key")
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi.SetCredentials: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		c.apiKeyID = apiKeyID
		c.privateKey = pkcs1
		return nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi.SetCredentials: expected RSA private key, got %T", key)
	}
	c.apiKeyID = apiKeyID
	c.privateKey = rsaKey
	return nil
}

// HasCredentials reports whether signed endpoints are usable.
func (c *Client) HasCredentials() bool {
	return c.apiKeyID != "" && c.privateKey != nil
}

// request describes one API call.
type request struct {
	method  string
	path    string // relative to baseURL, without query
	query   url.Values
	body    any
	signed  bool
	noRetry bool
}

// do sends r and decodes the JSON response into out. Reads retry 429 and
// 5xx with exponential backoff; requests with noRetry run exactly once.
func (c *Client) do(ctx context.Context, r request, out any) error {
	if r.signed && !c.HasCredentials() {
		return ErrNoCredentials
	}

	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = b
	}

	full := c.baseURL + r.path
	if len(r.query) > 0 {
		full += "?" + r.query.Encode()
	}
	u, err := url.Parse(full)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	limiter := c.readLimiter
	if r.method != http.MethodGet {
		limiter = c.writeLimiter
	}
	attempts := maxRetries
	if r.noRetry {
		attempts = 0
	}

	for attempt := 0; attempt <= attempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := c.send(ctx, r, u, payload)
		if err != nil {
			if attempt == attempts {
				return fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == attempts {
				return fmt.Errorf("kalshi: HTTP %d after %d attempts", resp.StatusCode, attempt+1)
			}
			slog.Warn("kalshi: retrying", "path", r.path, "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 400 {
			return checkStatus(resp.StatusCode, body)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func (c *Client) send(ctx context.Context, r request, u *url.URL, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.signed {
		if err := c.sign(req, r.method, u.Path); err != nil {
			return nil, err
		}
	}
	return c.http.Do(req)
}

// sign adds the RSA-PSS-SHA256 headers over timestamp + method + path. The
// path excludes the query string.
func (c *Client) sign(req *http.Request, method, path string) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	hash := sha256.Sum256([]byte(ts + method + path))
	sig, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return fmt.Errorf("kalshi: sign request: %w", err)
	}
	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(sig))
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// checkStatus maps an error response body to an APIError.
func checkStatus(status int, body []byte) error {
	var e errorResponse
	_ = json.Unmarshal(body, &e)
	apiErr := &APIError{Status: status, Code: e.Code, Message: e.Message}
	if e.Error != nil {
		apiErr.Code = e.Error.Code
		apiErr.Message = e.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}
	return apiErr
}

// sleep waits with exponential backoff, honouring ctx.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

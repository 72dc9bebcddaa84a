// Package httpclient provides the rate-limited, retrying, caching GET client
// shared by the content API adapters.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xiaot623/entertainbot/internal/apperr"
	"github.com/xiaot623/entertainbot/internal/cache"
)

// UserAgent is sent with every outbound request.
const UserAgent = "ChatBotRAG/1.0 (entertainment-chatbot)"

// DefaultRetryAfter is used when a 429 carries no usable Retry-After header.
const DefaultRetryAfter = 2 * time.Second

// Config configures a Client.
type Config struct {
	Name       string
	BaseURL    string
	RateLimit  time.Duration
	Timeout    time.Duration
	MaxRetries int
	CacheTTL   time.Duration
	CacheSize  int
	Headers    map[string]string
	Logger     *slog.Logger
}

// Client issues GET requests against one upstream API.
type Client struct {
	name       string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	cache      *cache.TTLCache[json.RawMessage]
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a client from cfg.
func New(cfg Config) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Every(cfg.RateLimit)
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		name:       cfg.Name,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		headers:    cfg.Headers,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: cfg.MaxRetries,
		cache:      cache.New[json.RawMessage](cfg.CacheTTL, cfg.CacheSize),
		logger:     logger.With("client", cfg.Name),
		sleep:      SleepContext,
	}
}

// Name returns the client name used in logs and cache keys.
func (c *Client) Name() string {
	return c.name
}

// Get fetches endpoint with params and returns the raw JSON body. Successful
// responses are cached when useCache is set.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, useCache bool) (json.RawMessage, error) {
	var key string
	if useCache {
		key = cache.MakeKey(c.name+":GET:"+endpoint, flatten(params))
		if body, ok := c.cache.Get(key); ok {
			c.logger.Debug("cache_hit", "endpoint", endpoint)
			return body, nil
		}
	}

	body, err := c.getWithRetry(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	if useCache {
		c.cache.Set(key, body)
	}
	return body, nil
}

func (c *Client) getWithRetry(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		c.logger.Info("api_request", "method", http.MethodGet, "endpoint", endpoint, "attempt", attempt)
		start := time.Now()
		resp, err := c.do(ctx, endpoint, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			last := attempt == c.maxRetries
			if IsTimeout(err) {
				if last {
					return nil, &apperr.UpstreamTimeout{Endpoint: endpoint}
				}
				c.logger.Warn("timeout_retry", "endpoint", endpoint, "attempt", attempt)
			} else {
				if last {
					break
				}
				c.logger.Warn("http_error_retry", "endpoint", endpoint, "error", err, "attempt", attempt)
			}
			if err := c.sleep(ctx, Backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.logger.Info("api_response",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"), DefaultRetryAfter)
			if attempt == c.maxRetries {
				return nil, &apperr.UpstreamRateLimited{RetryAfter: retryAfter.Seconds()}
			}
			c.logger.Warn("rate_limited", "retry_after", retryAfter.Seconds(), "attempt", attempt)
			if err := c.sleep(ctx, retryAfter); err != nil {
				return nil, err
			}
			continue
		case IsRetryableStatus(resp.StatusCode):
			if attempt == c.maxRetries {
				return nil, &apperr.UpstreamError{
					Message: fmt.Sprintf("%s: HTTP %d for %s", c.name, resp.StatusCode, endpoint),
				}
			}
			c.logger.Warn("retryable_error", "status", resp.StatusCode, "backoff", Backoff(attempt).Seconds(), "attempt", attempt)
			if err := c.sleep(ctx, Backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode >= 400:
			return nil, &apperr.UpstreamClientError{Endpoint: endpoint, Status: resp.StatusCode}
		}

		if readErr != nil {
			return nil, &apperr.UpstreamError{Message: fmt.Sprintf("%s: failed to read response: %v", c.name, readErr)}
		}
		if !json.Valid(body) {
			return nil, &apperr.UpstreamError{Message: fmt.Sprintf("%s: invalid JSON from %s", c.name, endpoint)}
		}
		return json.RawMessage(body), nil
	}

	return nil, &apperr.UpstreamError{
		Message: fmt.Sprintf("%s: All %d retries exhausted for %s", c.name, c.maxRetries, endpoint),
	}
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return c.httpClient.Do(req)
}

// IsRetryableStatus reports whether status is worth retrying.
func IsRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ParseRetryAfter reads a Retry-After value in seconds, falling back to def.
func ParseRetryAfter(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs < 0 {
		return def
	}
	return time.Duration(secs * float64(time.Second))
}

// Backoff returns 1s, 2s, 4s... for attempts 1, 2, 3...
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * time.Second
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func flatten(params url.Values) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = strings.Join(v, ",")
	}
	return out
}

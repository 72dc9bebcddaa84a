package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/entertainbot/internal/apperr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New(Config{
		Name:       "Test",
		BaseURL:    server.URL + "/",
		Timeout:    time.Second,
		MaxRetries: 3,
		CacheTTL:   time.Minute,
		CacheSize:  16,
	})
	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return c, &sleeps
}

func TestGetSuccessAndCache(t *testing.T) {
	var hits int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/anime", r.URL.Path)
		assert.Equal(t, "naruto", r.URL.Query().Get("q"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		fmt.Fprint(w, `{"data":[]}`)
	})

	params := url.Values{"q": {"naruto"}}
	body, err := c.Get(context.Background(), "/anime", params, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(body))

	_, err = c.Get(context.Background(), "/anime", params, true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = c.Get(context.Background(), "/anime", params, false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestGetRetriesServerErrorsWithBackoff(t *testing.T) {
	var hits int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	})

	body, err := c.Get(context.Background(), "/shows/1", nil, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *sleeps)
}

func TestGetServerErrorExhausted(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Get(context.Background(), "/shows/1", nil, false)
	var upErr *apperr.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Contains(t, upErr.Message, "HTTP 502")
}

func TestGetRateLimitedUsesRetryAfter(t *testing.T) {
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Get(context.Background(), "/anime", nil, true)
	var rl *apperr.UpstreamRateLimited
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 7.0, rl.RetryAfter)
	assert.Equal(t, []time.Duration{7 * time.Second, 7 * time.Second}, *sleeps)
}

func TestGetClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Get(context.Background(), "/anime/0/full", nil, true)
	var ce *apperr.UpstreamClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusNotFound, ce.Status)
	assert.Equal(t, "/anime/0/full", ce.Endpoint)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Empty(t, *sleeps)
}

func TestGetTimeout(t *testing.T) {
	block := make(chan struct{})
	c, sleeps := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)
	c.httpClient.Timeout = 20 * time.Millisecond

	_, err := c.Get(context.Background(), "/slow", nil, false)
	var te *apperr.UpstreamTimeout
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "/slow", te.Endpoint)
	assert.Len(t, *sleeps, 2)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 2*time.Second, ParseRetryAfter("", 2*time.Second))
	assert.Equal(t, 2*time.Second, ParseRetryAfter("soon", 2*time.Second))
	assert.Equal(t, 1500*time.Millisecond, ParseRetryAfter("1.5", 2*time.Second))
}

func TestIsRetryableStatus(t *testing.T) {
	for _, s := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(s), s)
	}
	for _, s := range []int{200, 400, 404, 501} {
		assert.False(t, IsRetryableStatus(s), s)
	}
}

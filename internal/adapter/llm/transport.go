package llm

import (
	"context"
	"net/http"
)

// headerTransport adds fixed headers to every request and records the
// Retry-After header of 429 responses into the request's retryHint.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.base.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		if hint := hintFrom(req.Context()); hint != nil {
			hint.retryAfter = resp.Header.Get("Retry-After")
		}
	}
	return resp, err
}

type retryHint struct {
	retryAfter string
}

type hintKey struct{}

func withHint(ctx context.Context, hint *retryHint) context.Context {
	return context.WithValue(ctx, hintKey{}, hint)
}

func hintFrom(ctx context.Context) *retryHint {
	hint, _ := ctx.Value(hintKey{}).(*retryHint)
	return hint
}

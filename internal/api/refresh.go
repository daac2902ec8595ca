package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ampm-club/portal/internal/metrics"
)

// Coordinator serializes silent token refreshes. Any number of concurrent
// callers collapse onto a single POST to the reissue endpoint and all
// receive its outcome; the in-flight marker is dropped once the call
// resolves, so a later failure can be retried.
//
// Refresh never returns an error: a failed reissue means the session is
// gone, and the caller's pending 401 already says so.
type Coordinator struct {
	client  *Client
	group   singleflight.Group
	timeout time.Duration
}

func newCoordinator(client *Client, timeout time.Duration) *Coordinator {
	return &Coordinator{client: client, timeout: timeout}
}

// Refresh obtains a fresh access token via the refresh cookie, stores it in
// the session, and returns it. Returns "" when the session could not be
// re-established.
func (r *Coordinator) Refresh() string {
	token, _, _ := r.group.Do("reissue", func() (any, error) {
		return r.reissue(), nil
	})
	return token.(string)
}

// reissue runs the single round trip. It deliberately uses its own context:
// the winner's token serves every waiter, so cancelling one caller must not
// abort the shared refresh.
func (r *Coordinator) reissue() string {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.client.baseURL+ReissuePath, nil)
	if err != nil {
		metrics.ObserveRefresh(false)
		return ""
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		r.client.logger.Debug("token reissue failed", "error", err)
		metrics.ObserveRefresh(false)
		return ""
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		r.client.logger.Debug("token reissue rejected", "status", resp.StatusCode)
		metrics.ObserveRefresh(false)
		return ""
	}

	token := BearerFromHeader(resp.Header)
	if token == "" {
		r.client.logger.Warn("token reissue succeeded without a bearer header")
		metrics.ObserveRefresh(false)
		return ""
	}

	r.client.store.SetToken(token)
	metrics.ObserveRefresh(true)
	return token
}

// BearerFromHeader extracts the bearer token from an Authorization response
// header. The scheme match is case-insensitive; anything else yields "".
func BearerFromHeader(h http.Header) string {
	raw := strings.TrimSpace(h.Get("Authorization"))
	const prefix = "bearer "
	if len(raw) <= len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(raw[len(prefix):])
}

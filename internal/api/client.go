package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/ampm-club/portal/internal/config"
	"github.com/ampm-club/portal/internal/metrics"
	"github.com/ampm-club/portal/internal/session"
)

// Portal endpoints owned by the auth flow. They never get a bearer header
// attached automatically and never trigger a refresh-and-retry, which keeps
// the reissue call itself from recursing.
const (
	LoginPath   = "/auth/login"
	SignupPath  = "/auth/signup"
	LogoutPath  = "/auth/logout"
	ReissuePath = "/api/auth/reissue"
)

var authEndpoints = map[string]struct{}{
	LoginPath:   {},
	SignupPath:  {},
	LogoutPath:  {},
	ReissuePath: {},
}

// Request describes one portal call. Method defaults to GET. Body is
// JSON-encoded when non-nil. Auth forces a bearer header on a read; mutating
// methods attach one regardless. The client's cookie jar rides along on
// every request, so the refresh cookie needs no per-call opt-in.
type Request struct {
	Path   string
	Method string
	Body   any
	Header http.Header
	Query  url.Values
	Auth   bool
}

// Response is the outcome of a 2xx portal call.
type Response struct {
	Status int
	Header http.Header
	// Data is the decoded JSON body, a string for non-JSON text bodies, or
	// nil for empty and malformed-JSON bodies.
	Data any
	// Raw is the body as received.
	Raw []byte
	// IsJSON reports whether the body decoded as JSON.
	IsJSON bool
}

// Decode unmarshals the raw JSON body into out. It is a no-op for empty
// bodies and fails for non-JSON ones.
func (r *Response) Decode(out any) error {
	if len(r.Raw) == 0 {
		return nil
	}
	if !r.IsJSON {
		return fmt.Errorf("portal: response is not JSON (Content-Type %q)", r.Header.Get("Content-Type"))
	}
	return json.Unmarshal(r.Raw, out)
}

// Text returns the raw body as a string.
func (r *Response) Text() string { return string(r.Raw) }

// Client dispatches authenticated requests against the portal backend.
// It owns the bearer-attachment policy, the refresh-and-retry cycle, and
// body parsing; feature services layer typed operations on top of it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *session.Store
	refresh    *Coordinator
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// if the replacement has none, since silent refresh depends on it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithCookieJar replaces the cookie jar, e.g. with a PersistentJar so the
// refresh cookie survives restarts.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.httpClient.Jar = jar }
}

// NewClient builds a dispatcher bound to the given session store.
func NewClient(cfg config.APIConfig, store *session.Store, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		c.httpClient.Jar = jar
	}
	c.refresh = newCoordinator(c, cfg.RefreshTimeout)
	return c
}

// BaseURL returns the configured portal base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the session store the client dispatches with.
func (c *Client) Store() *session.Store { return c.store }

// RefreshSession runs one silent token refresh through the coordinator and
// reports whether a token was obtained. Concurrent callers share a single
// reissue round trip.
func (c *Client) RefreshSession() bool {
	return c.refresh.Refresh() != ""
}

// Do executes one portal request.
//
// A bearer header is attached when the request is mutating or flagged Auth,
// unless the path is an auth endpoint. On a 401 to such a request the client
// runs exactly one coordinated refresh and, if a token was obtained, retries
// exactly once; the retry's status is final either way. Non-2xx final
// statuses come back as *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	mutating := method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions
	wantsAuth := (req.Auth || mutating) && !isAuthEndpoint(req.Path)

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	requestID := uuid.NewString()
	resp, raw, err := c.send(ctx, method, req, body, wantsAuth, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && wantsAuth {
		if fresh := c.refresh.Refresh(); fresh != "" {
			metrics.RetriesTotal.Inc()
			c.logger.Debug("retrying after refresh", "method", method, "path", req.Path, "request_id", requestID)
			resp, raw, err = c.send(ctx, method, req, body, wantsAuth, requestID)
			if err != nil {
				return nil, err
			}
		}
	}

	metrics.ObserveRequest(method, resp.StatusCode)

	data, isJSON := c.parseBody(resp, raw, req.Path)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(resp.StatusCode, raw, data)
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Data:   data,
		Raw:    raw,
		IsJSON: isJSON,
	}, nil
}

// DoJSON executes req and decodes a JSON 2xx body into out. Empty bodies
// leave out untouched.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if out != nil && resp.IsJSON {
		if err := json.Unmarshal(resp.Raw, out); err != nil {
			return resp, fmt.Errorf("decode %s response: %w", req.Path, err)
		}
	}
	return resp, nil
}

// send builds and executes one HTTP round trip, reading the token fresh so
// a retry after refresh picks up the new one.
func (c *Client) send(ctx context.Context, method string, req Request, body []byte, wantsAuth bool, requestID string) (*http.Response, []byte, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}
	if wantsAuth && httpReq.Header.Get("Authorization") == "" {
		if token := c.store.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s response: %w", req.Path, err)
	}
	return resp, raw, nil
}

// parseBody decodes the response body by Content-Type. Only JSON is parsed;
// text comes through as a string; a malformed JSON body on an otherwise fine
// response degrades to nil instead of failing the call.
func (c *Client) parseBody(resp *http.Response, raw []byte, path string) (any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		var data any
		if err := json.Unmarshal(raw, &data); err != nil {
			c.logger.Warn("malformed JSON response", "path", path, "status", resp.StatusCode, "error", err)
			return nil, false
		}
		return data, true
	}
	return string(raw), false
}

func isAuthEndpoint(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	_, ok := authEndpoints[path]
	return ok
}

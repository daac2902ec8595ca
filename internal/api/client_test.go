package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ampm-club/portal/internal/config"
	"github.com/ampm-club/portal/internal/session"
)

func newTestClient(t *testing.T, baseURL string) (*Client, *session.Store) {
	t.Helper()
	store := session.NewStore("", nil)
	client := NewClient(config.APIConfig{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		RefreshTimeout: 5 * time.Second,
	}, store)
	return client, store
}

func TestBearerAttachment(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.SetToken("tok-1")
	ctx := context.Background()

	// Plain read: no bearer.
	_, err := client.Do(ctx, Request{Path: "/students/tiers"})
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))

	// Read flagged Auth: bearer attached.
	_, err = client.Do(ctx, Request{Path: "/students/me", Auth: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", got.Get("Authorization"))

	// Mutating request: bearer attached without the flag.
	_, err = client.Do(ctx, Request{Path: "/polls", Method: http.MethodPost, Body: map[string]string{"title": "t"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))

	// Auth endpoints are exempt even though POST is mutating.
	for _, path := range []string{LoginPath, SignupPath, LogoutPath, ReissuePath} {
		_, err = client.Do(ctx, Request{Path: path, Method: http.MethodPost})
		require.NoError(t, err)
		assert.Empty(t, got.Get("Authorization"), "auth endpoint %s must not carry a bearer", path)
	}
}

func TestRefreshAndRetryOn401(t *testing.T) {
	var reissues, attempts int
	mux := http.NewServeMux()
	mux.HandleFunc(ReissuePath, func(w http.ResponseWriter, r *http.Request) {
		reissues++
		w.Header().Set("Authorization", "Bearer fresh-token")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/polls", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.SetToken("stale-token")

	resp, err := client.Do(context.Background(), Request{Path: "/polls", Method: http.MethodPost, Body: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 1, reissues)
	assert.Equal(t, 2, attempts, "original attempt plus exactly one retry")
	assert.Equal(t, "fresh-token", store.Token())
}

func TestRetryBoundIsOne(t *testing.T) {
	var reissues, attempts int
	mux := http.NewServeMux()
	mux.HandleFunc(ReissuePath, func(w http.ResponseWriter, r *http.Request) {
		reissues++
		w.Header().Set("Authorization", "Bearer still-rejected")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/polls", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.SetToken("stale")

	_, err := client.Do(context.Background(), Request{Path: "/polls", Method: http.MethodPost})
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, reissues)
	assert.Equal(t, 2, attempts, "a 401 on the retry is final")
}

func TestNoRetryWhenRefreshFails(t *testing.T) {
	var attempts int
	mux := http.NewServeMux()
	mux.HandleFunc(ReissuePath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/students/me", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	store.SetToken("expired")

	_, err := client.Do(context.Background(), Request{Path: "/students/me", Auth: true})
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, attempts, "no retry without a fresh token")
}

func TestUnauthenticatedReadDoesNotRefresh(t *testing.T) {
	var reissues int
	mux := http.NewServeMux()
	mux.HandleFunc(ReissuePath, func(w http.ResponseWriter, r *http.Request) { reissues++ })
	mux.HandleFunc("/students/tiers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	_, err := client.Do(context.Background(), Request{Path: "/students/tiers"})
	assert.True(t, IsUnauthorized(err))
	assert.Zero(t, reissues)
}

func TestTextBodyPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	resp, err := client.Do(context.Background(), Request{Path: "/ping"})
	require.NoError(t, err)
	assert.False(t, resp.IsJSON)
	assert.Equal(t, "pong", resp.Data)
	assert.Equal(t, "pong", resp.Text())
}

func TestMalformedJSONDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	resp, err := client.Do(context.Background(), Request{Path: "/polls"})
	require.NoError(t, err, "a malformed body on a 2xx is not a failed call")
	assert.Nil(t, resp.Data)
	assert.Equal(t, []byte("{not json"), resp.Raw)
}

func TestErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "duplicate student number"})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	_, err := client.Do(context.Background(), Request{Path: "/auth/signup", Method: http.MethodPost})
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "duplicate student number", apiErr.Message)
	assert.Equal(t, http.StatusConflict, StatusCode(err))
}

func TestCookieJarRidesEveryRequest(t *testing.T) {
	var gotCookie string
	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "ampm_refresh", Value: "rc-1", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/students/tiers", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("ampm_refresh"); err == nil {
			gotCookie = c.Value
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.Do(ctx, Request{Path: LoginPath, Method: http.MethodPost})
	require.NoError(t, err)

	// No per-call opt-in: a plain read carries the refresh cookie too.
	_, err = client.Do(ctx, Request{Path: "/students/tiers"})
	require.NoError(t, err)
	assert.Equal(t, "rc-1", gotCookie)
}

func TestDoJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"studentName": "Kim", "studentNumber": "2021001"})
	}))
	defer srv.Close()

	client, _ := newTestClient(t, srv.URL)

	var user session.User
	_, err := client.DoJSON(context.Background(), Request{Path: "/students/me", Auth: true}, &user)
	require.NoError(t, err)
	assert.Equal(t, "Kim", user.StudentName)
	assert.Equal(t, "2021001", user.StudentNumber)
}

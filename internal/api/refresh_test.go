package api

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshSingleFlight(t *testing.T) {
	var reissues atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, ReissuePath, r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		reissues.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the flight open so callers pile up
		w.Header().Set("Authorization", "Bearer shared-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)

	const callers = 16
	tokens := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = client.refresh.Refresh()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), reissues.Load(), "concurrent callers must share one reissue")
	for _, tok := range tokens {
		assert.Equal(t, "shared-token", tok)
	}
	assert.Equal(t, "shared-token", store.Token())
}

func TestRefreshFailureIsRetryableLater(t *testing.T) {
	var reissues atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reissues.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Authorization", "Bearer second-chance")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)

	assert.Empty(t, client.refresh.Refresh(), "first refresh fails")
	assert.Empty(t, store.Token())

	// The failed flight is not cached: the next caller gets a new attempt.
	assert.Equal(t, "second-chance", client.refresh.Refresh())
	assert.Equal(t, "second-chance", store.Token())
	assert.Equal(t, int32(2), reissues.Load())
}

func TestRefreshWithoutBearerHeaderFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // 200 but no Authorization header
	}))
	defer srv.Close()

	client, store := newTestClient(t, srv.URL)
	assert.Empty(t, client.refresh.Refresh())
	assert.Empty(t, store.Token())
}

func TestBearerFromHeader(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer lowercase-scheme", "lowercase-scheme"},
		{"BEARER shouty", "shouty"},
		{"  Bearer padded  ", "padded"},
		{"Basic dXNlcg==", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		h := http.Header{}
		if tc.raw != "" {
			h.Set("Authorization", tc.raw)
		}
		assert.Equal(t, tc.want, BearerFromHeader(h), "raw %q", tc.raw)
	}
}

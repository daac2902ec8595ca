package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ampm-club/portal/internal/api"
	"github.com/ampm-club/portal/internal/config"
	"github.com/ampm-club/portal/internal/session"
)

func newTestService(t *testing.T, baseURL string) (*Service, *session.Store) {
	t.Helper()
	store := session.NewStore("", nil)
	client := api.NewClient(config.APIConfig{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		RefreshTimeout: 5 * time.Second,
	}, store)
	return NewService(client, nil), store
}

func TestLoginAdoptsHeaderTokenAndBodyUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, api.LoginPath, r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"), "login must not carry a bearer")

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		require.Equal(t, "2021001", creds.StudentNumber)

		w.Header().Set("Authorization", "Bearer issued-token")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"studentId":     7,
			"studentName":   "Kim",
			"studentNumber": "2021001",
			"role":          "ROLE_USER",
		})
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)

	user, err := svc.Login(context.Background(), Credentials{StudentNumber: "2021001", StudentPassword: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "Kim", user.StudentName)
	assert.Equal(t, "issued-token", store.Token())
	assert.True(t, store.IsAuthenticated())
}

func TestLoginFallsBackToProfileFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(api.LoginPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Authorization", "Bearer issued-token")
		w.WriteHeader(http.StatusOK) // no body
	})
	mux.HandleFunc("/students/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer issued-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"studentName": "Lee", "studentNumber": "2022042"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)

	user, err := svc.Login(context.Background(), Credentials{StudentNumber: "2022042", StudentPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Lee", user.StudentName)
	assert.True(t, store.IsAuthenticated())
}

func TestLoginFailureClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "bad credentials"})
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)
	store.SetToken("leftover")
	store.SetUser(&session.User{StudentName: "Old", StudentNumber: "000"})

	_, err := svc.Login(context.Background(), Credentials{StudentNumber: "x", StudentPassword: "y"})
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())
	assert.Nil(t, store.User())
}

func TestLoginWithoutTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"studentName": "Kim", "studentNumber": "2021001"})
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)

	_, err := svc.Login(context.Background(), Credentials{StudentNumber: "2021001", StudentPassword: "pw"})
	require.ErrorIs(t, err, ErrLoginFailed)
	assert.False(t, store.IsAuthenticated())
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)
	store.SetToken("tok")
	store.SetUser(&session.User{StudentName: "Kim", StudentNumber: "2021001"})

	svc.Logout(context.Background())
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.Token())
	assert.Nil(t, store.User())
}

func TestLogoutClearsWhenServerUnreachable(t *testing.T) {
	svc, store := newTestService(t, "http://127.0.0.1:1") // nothing listens here
	store.SetToken("tok")
	store.SetUser(&session.User{StudentName: "Kim", StudentNumber: "2021001"})

	svc.Logout(context.Background())
	assert.False(t, store.IsAuthenticated())
}

func TestFetchCurrentUserIsPassive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc, _ := newTestService(t, srv.URL)
	assert.Nil(t, svc.FetchCurrentUser(context.Background()), "failed validation is anonymous, not an error")
}

func TestRegisterReturnsRawStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, api.SignupPath, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	svc, _ := newTestService(t, srv.URL)

	status, err := svc.Register(context.Background(), Registration{
		StudentName:     "Park",
		StudentNumber:   "2023007",
		StudentPassword: "pw123456",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
}

func TestBootstrapEstablishesSessionFromCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(api.ReissuePath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Authorization", "Bearer booted-token")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/students/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer booted-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"studentName": "Kim", "studentNumber": "2021001"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)

	require.True(t, svc.Bootstrap(context.Background()))
	assert.True(t, store.IsAuthenticated())
	assert.Equal(t, "booted-token", store.Token())
}

func TestBootstrapClearsStaleProfileWhenRefreshFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)
	store.SetUser(&session.User{StudentName: "Stale", StudentNumber: "1999001"})

	assert.False(t, svc.Bootstrap(context.Background()))
	assert.Nil(t, store.User(), "hydrated profile must not outlive a dead refresh cookie")
}

func TestIssueVerificationCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/students/issue", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "ampm-3f9a"})
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)
	store.SetToken("tok")

	code, err := svc.IssueVerificationCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ampm-3f9a", code)
}

func TestVerifySolvedAccountUpdatesProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body SolvedAccount
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "tourist-jr", body.SolvedAcNickname)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"studentName":   "Kim",
			"studentNumber": "2021001",
			"studentTier":   "Gold III",
		})
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)
	store.SetToken("tok")

	user, err := svc.VerifySolvedAccount(context.Background(), "tourist-jr")
	require.NoError(t, err)
	assert.Equal(t, "Gold III", user.StudentTier)
	require.NotNil(t, store.User())
	assert.Equal(t, "Gold III", store.User().StudentTier)
}

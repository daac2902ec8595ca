package portaltest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ampm-club/portal/internal/admin"
	"github.com/ampm-club/portal/internal/config"
	"github.com/ampm-club/portal/internal/session"
)

func testConfig() config.DevServerConfig {
	return config.DevServerConfig{
		Host:            "127.0.0.1",
		Port:            0,
		AccessSecret:    "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		BcryptCost:      4, // minimum cost keeps the suite fast
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSignupIsPendingUntilApproved(t *testing.T) {
	srv := NewServer(testConfig(), nil)
	router := srv.Router()

	rec := postJSON(t, router, "/auth/signup", map[string]string{
		"studentName":     "Park",
		"studentNumber":   "2023007",
		"studentPassword": "pw123456",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Pending accounts cannot sign in.
	rec = postJSON(t, router, "/auth/login", map[string]string{
		"studentNumber":   "2023007",
		"studentPassword": "pw123456",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A staff member approves; login then succeeds.
	_, err := srv.Seed("Admin", "2019001", "adminpw1", session.RoleStaff)
	require.NoError(t, err)
	rec = postJSON(t, router, "/auth/login", map[string]string{
		"studentNumber":   "2019001",
		"studentPassword": "adminpw1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	adminToken := rec.Header().Get("Authorization")
	require.True(t, strings.HasPrefix(adminToken, "Bearer "))

	req := httptest.NewRequest(http.MethodGet, "/admin/signup-applications?status=PENDING", nil)
	req.Header.Set("Authorization", adminToken)
	list := httptest.NewRecorder()
	router.ServeHTTP(list, req)
	require.Equal(t, http.StatusOK, list.Code)

	var apps []admin.SignupApplication
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, "2023007", apps[0].StudentNumber)

	raw, err := json.Marshal(admin.ApplicationSelection{ApplicationIDs: []int64{apps[0].ID}})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/admin/signup-applications/approve", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", adminToken)
	approve := httptest.NewRecorder()
	router.ServeHTTP(approve, req)
	require.Equal(t, http.StatusNoContent, approve.Code)

	rec = postJSON(t, router, "/auth/login", map[string]string{
		"studentNumber":   "2023007",
		"studentPassword": "pw123456",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var profile session.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Park", profile.StudentName)
}

func TestApproveRequiresStaff(t *testing.T) {
	srv := NewServer(testConfig(), nil)
	router := srv.Router()

	_, err := srv.Seed("Kim", "2021001", "pw123456", session.RoleUser)
	require.NoError(t, err)
	rec := postJSON(t, router, "/auth/login", map[string]string{
		"studentNumber":   "2021001",
		"studentPassword": "pw123456",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/signup-applications", nil)
	req.Header.Set("Authorization", rec.Header().Get("Authorization"))
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	assert.Equal(t, http.StatusForbidden, out.Code)
}

func TestReissueRotatesRefreshCookie(t *testing.T) {
	srv := NewServer(testConfig(), nil)
	router := srv.Router()

	_, err := srv.Seed("Kim", "2021001", "pw123456", session.RoleUser)
	require.NoError(t, err)

	login := postJSON(t, router, "/auth/login", map[string]string{
		"studentNumber":   "2021001",
		"studentPassword": "pw123456",
	})
	require.Equal(t, http.StatusOK, login.Code)
	cookies := login.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reissue", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	reissue := httptest.NewRecorder()
	router.ServeHTTP(reissue, req)
	require.Equal(t, http.StatusOK, reissue.Code)
	assert.True(t, strings.HasPrefix(reissue.Header().Get("Authorization"), "Bearer "))

	// The old cookie is single-use.
	replay := httptest.NewRecorder()
	router.ServeHTTP(replay, req)
	assert.Equal(t, http.StatusUnauthorized, replay.Code)
}

func TestPresignedStorageRoundTrip(t *testing.T) {
	srv := NewServer(testConfig(), nil)
	router := srv.Router()
	ts := httptest.NewServer(router)
	defer ts.Close()
	srv.SetBaseURL(ts.URL)

	presigned, err := srv.presign("exhibits/images/demo.png")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, presigned, strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	get, err := http.Get(presigned)
	require.NoError(t, err)
	defer get.Body.Close()
	require.Equal(t, http.StatusOK, get.StatusCode)

	// Tampering with the key invalidates the signature.
	bad := strings.Replace(presigned, "demo.png", "other.png", 1)
	tampered, err := http.Get(bad)
	require.NoError(t, err)
	tampered.Body.Close()
	assert.Equal(t, http.StatusForbidden, tampered.StatusCode)
}

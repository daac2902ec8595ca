package api

import (
	"net/http"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentJarSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	base := "http://portal.test"
	baseURL, _ := url.Parse(base)

	first, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	first.SetCookies(baseURL, []*http.Cookie{{
		Name:   "ampm_refresh",
		Value:  "cookie-1",
		Path:   "/",
		MaxAge: 3600,
	}})

	second, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	cookies := second.Cookies(baseURL)
	require.Len(t, cookies, 1)
	assert.Equal(t, "ampm_refresh", cookies[0].Name)
	assert.Equal(t, "cookie-1", cookies[0].Value)
}

func TestPersistentJarDropsExpiredOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	base := "http://portal.test"
	baseURL, _ := url.Parse(base)

	first, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	first.SetCookies(baseURL, []*http.Cookie{{
		Name:    "ampm_refresh",
		Value:   "stale",
		Path:    "/",
		Expires: time.Now().Add(time.Second),
	}})

	time.Sleep(1100 * time.Millisecond)
	second, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	assert.Empty(t, second.Cookies(baseURL))
}

func TestPersistentJarIgnoresForeignHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	base := "http://portal.test"

	jar, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	other, _ := url.Parse("http://storage.elsewhere")
	jar.SetCookies(other, []*http.Cookie{{Name: "tracking", Value: "x", Path: "/"}})

	restarted, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	assert.Empty(t, restarted.Cookies(other))
}

func TestPersistentJarClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	base := "http://portal.test"
	baseURL, _ := url.Parse(base)

	jar, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	jar.SetCookies(baseURL, []*http.Cookie{{Name: "ampm_refresh", Value: "v", Path: "/", MaxAge: 3600}})
	jar.Clear()

	assert.Empty(t, jar.Cookies(baseURL))
	restarted, err := NewPersistentJar(path, base, nil)
	require.NoError(t, err)
	assert.Empty(t, restarted.Cookies(baseURL))
}

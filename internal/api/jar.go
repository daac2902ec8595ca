package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PersistentJar is a cookie jar that writes the portal's cookies to disk,
// the way a browser keeps its cookie store. It exists so the HTTP-only
// refresh cookie survives process restarts and Bootstrap can silently
// re-establish the session. Only cookies for the portal host are persisted.
type PersistentJar struct {
	mu     sync.Mutex
	jar    *cookiejar.Jar
	path   string
	base   *url.URL
	stored map[string]storedCookie
	logger *slog.Logger
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// NewPersistentJar creates a jar persisting the cookies of baseURL's host
// at path. Cookies already on disk are loaded, expired ones dropped.
func NewPersistentJar(path, baseURL string, logger *slog.Logger) (*PersistentJar, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	j := &PersistentJar{
		jar:    inner,
		path:   path,
		base:   base,
		stored: make(map[string]storedCookie),
		logger: logger,
	}
	j.load()
	return j, nil
}

// Cookies implements http.CookieJar.
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// SetCookies implements http.CookieJar, persisting portal-host cookies.
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)

	if u.Hostname() != j.base.Hostname() {
		return
	}
	now := time.Now()
	for _, c := range cookies {
		switch {
		case c.MaxAge < 0, !c.Expires.IsZero() && c.Expires.Before(now):
			delete(j.stored, c.Name)
		default:
			expires := c.Expires
			if c.MaxAge > 0 {
				expires = now.Add(time.Duration(c.MaxAge) * time.Second)
			}
			j.stored[c.Name] = storedCookie{
				Name:    c.Name,
				Value:   c.Value,
				Path:    c.Path,
				Expires: expires,
			}
		}
	}
	j.persistLocked()
}

// Clear drops all persisted cookies and removes the state file.
func (j *PersistentJar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stored = make(map[string]storedCookie)
	if inner, err := cookiejar.New(nil); err == nil {
		j.jar = inner
	}
	if j.path == "" {
		return
	}
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		j.logger.Warn("remove cookie store", "path", j.path, "error", err)
	}
}

func (j *PersistentJar) load() {
	if j.path == "" {
		return
	}
	data, err := os.ReadFile(j.path)
	if err != nil {
		if !os.IsNotExist(err) {
			j.logger.Warn("read cookie store", "path", j.path, "error", err)
		}
		return
	}

	var saved []storedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		j.logger.Warn("parse cookie store", "path", j.path, "error", err)
		return
	}

	now := time.Now()
	restore := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		j.stored[c.Name] = c
		restore = append(restore, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}
	j.jar.SetCookies(j.base, restore)
}

// persistLocked writes the cookie store atomically (tmp + rename, 0600).
// Caller holds j.mu.
func (j *PersistentJar) persistLocked() {
	if j.path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		j.logger.Warn("create state dir", "path", j.path, "error", err)
		return
	}

	saved := make([]storedCookie, 0, len(j.stored))
	for _, c := range j.stored {
		saved = append(saved, c)
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		j.logger.Warn("marshal cookie store", "error", err)
		return
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		j.logger.Warn("write cookie store", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, j.path); err != nil {
		_ = os.Remove(tmp)
		j.logger.Warn("rename cookie store", "path", j.path, "error", err)
	}
}

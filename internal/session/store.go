package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Store holds the client's session: the access token and the user profile.
//
// The token lives in memory only and is never written to disk; silent
// re-authentication relies on the refresh cookie instead. The user profile
// is persisted so the client can hydrate instantly on the next start,
// before any network round trip. A persisted profile without a token is a
// valid transient state, but IsAuthenticated is true only when both are
// present.
//
// All mutation goes through SetToken, SetUser, and Clear. Everything else
// is read-only.
type Store struct {
	mu     sync.RWMutex
	token  string
	user   *User
	path   string
	logger *slog.Logger
}

// NewStore creates a Store persisting the user profile at path. An empty
// path keeps the whole session in memory (used by tests). A profile already
// on disk is loaded immediately.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}
	if path != "" {
		if err := s.Reload(); err != nil {
			logger.Warn("load persisted profile", "path", path, "error", err)
		}
	}
	return s
}

// Token returns the current access token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the in-memory access token. It never touches disk.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// User returns a copy of the current profile, or nil when none is set.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser replaces the profile and persists it. Persistence failures are
// logged, not returned: the in-memory session is authoritative for this
// process.
func (s *Store) SetUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
	} else {
		copied := *u
		s.user = &copied
	}
	s.persistLocked()
}

// IsAuthenticated reports whether both token and user are present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// Clear wipes both session fields and removes the persisted profile.
// Other portal processes watching the state file treat the removal as a
// forced sign-out signal.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	if s.path == "" {
		return
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("remove persisted profile", "path", s.path, "error", err)
	}
}

// Reload re-reads the persisted profile, replacing the in-memory copy.
// A missing file leaves the profile empty without error.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.user = nil
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("read profile: %w", err)
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("parse profile: %w", err)
	}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// TokenExpiry extracts the expiry claim from the access token without
// verifying its signature; the token is opaque to the client except as a
// scheduling hint. The second return is false when there is no token or it
// carries no parseable expiry.
func (s *Store) TokenExpiry() (time.Time, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// persistLocked writes the profile atomically (tmp + rename, 0600).
// Caller holds s.mu.
func (s *Store) persistLocked() {
	if s.path == "" {
		return
	}
	if s.user == nil {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove persisted profile", "path", s.path, "error", err)
		}
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		s.logger.Warn("create state dir", "path", s.path, "error", err)
		return
	}

	data, err := json.MarshalIndent(s.user, "", "  ")
	if err != nil {
		s.logger.Warn("marshal profile", "error", err)
		return
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Warn("write profile", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		s.logger.Warn("rename profile", "path", s.path, "error", err)
	}
}

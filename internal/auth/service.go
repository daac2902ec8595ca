package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ampm-club/portal/internal/api"
	"github.com/ampm-club/portal/internal/session"
)

const (
	currentUserPath = "/students/me"
	passwordPath    = "/students/modify/password"
	issuePath       = "/students/issue"
	infoPath        = "/students/info"
)

// Service implements the portal authentication operations on top of the
// request dispatcher. It is the only writer of the session store besides the
// refresh coordinator.
type Service struct {
	client *api.Client
	store  *session.Store
	logger *slog.Logger
}

// NewService creates an auth service bound to the dispatcher's session store.
func NewService(client *api.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, store: client.Store(), logger: logger}
}

// Login authenticates with the portal and establishes the session.
//
// The access token comes from the Authorization response header, falling
// back to a token field in the body. The profile comes from the body when it
// has a recognizable shape, else from a follow-up /students/me. Missing
// either piece fails the login and leaves the session cleared.
func (s *Service) Login(ctx context.Context, creds Credentials) (*session.User, error) {
	resp, err := s.client.Do(ctx, api.Request{
		Path:   api.LoginPath,
		Method: http.MethodPost,
		Body:   creds,
	})
	if err != nil {
		s.store.Clear()
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	token := api.BearerFromHeader(resp.Header)
	if token == "" {
		token = tokenFromBody(resp.Data)
	}
	if token == "" {
		s.store.Clear()
		s.logger.Warn("login response carried no access token")
		return nil, ErrLoginFailed
	}
	s.store.SetToken(token)

	user := userFromBody(resp.Data)
	if user == nil {
		user = s.FetchCurrentUser(ctx)
	}
	if user == nil {
		s.store.Clear()
		return nil, ErrLoginFailed
	}

	s.store.SetUser(user)
	s.logger.Info("signed in", "student_number", user.StudentNumber)
	return user, nil
}

// Logout clears the local session unconditionally and notifies the server
// on a best-effort basis. Server failures are swallowed: the user asked to
// be signed out and is signed out.
func (s *Service) Logout(ctx context.Context) {
	defer s.store.Clear()
	if _, err := s.client.Do(ctx, api.Request{
		Path:   api.LogoutPath,
		Method: http.MethodPost,
	}); err != nil {
		s.logger.Debug("server logout failed", "error", err)
	}
}

// FetchCurrentUser loads the profile for the current token and stores it.
// A nil return means the session is not (or no longer) valid; it is never
// an error, callers treat it as "anonymous".
func (s *Service) FetchCurrentUser(ctx context.Context) *session.User {
	var u session.User
	if _, err := s.client.DoJSON(ctx, api.Request{Path: currentUserPath, Auth: true}, &u); err != nil {
		s.logger.Debug("fetch current user", "error", err)
		return nil
	}
	if u.StudentName == "" && u.StudentNumber == "" {
		return nil
	}
	s.store.SetUser(&u)
	return &u
}

// Register submits a signup request and returns the raw HTTP status; 2xx
// means the account was created and is pending admin approval.
func (s *Service) Register(ctx context.Context, reg Registration) (int, error) {
	resp, err := s.client.Do(ctx, api.Request{
		Path:   api.SignupPath,
		Method: http.MethodPost,
		Body:   reg,
	})
	if err != nil {
		return api.StatusCode(err), err
	}
	return resp.Status, nil
}

// Bootstrap re-establishes the session at startup via the refresh cookie.
// It reports whether the user ended up authenticated; on failure the session
// is cleared so stale hydrated profiles do not outlive a dead cookie.
func (s *Service) Bootstrap(ctx context.Context) bool {
	if !s.client.RefreshSession() {
		s.store.Clear()
		return false
	}
	if s.FetchCurrentUser(ctx) == nil {
		s.store.Clear()
		return false
	}
	return true
}

// ChangePassword replaces the account password.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	_, err := s.client.Do(ctx, api.Request{
		Path:   passwordPath,
		Method: http.MethodPost,
		Body:   PasswordChange{CurrentPassword: current, NewPassword: next},
	})
	return err
}

// IssueVerificationCode requests a code the student places in their
// solved.ac profile to prove ownership of the handle.
func (s *Service) IssueVerificationCode(ctx context.Context) (string, error) {
	resp, err := s.client.Do(ctx, api.Request{Path: issuePath, Method: http.MethodPost})
	if err != nil {
		return "", err
	}

	code := ""
	if m, ok := resp.Data.(map[string]any); ok {
		code, _ = m["code"].(string)
	} else if text, ok := resp.Data.(string); ok {
		code = strings.TrimSpace(text)
	}
	if code == "" {
		return "", ErrVerificationFailed
	}
	return code, nil
}

// VerifySolvedAccount links a solved.ac handle to the account and returns
// the refreshed profile.
func (s *Service) VerifySolvedAccount(ctx context.Context, handle string) (*session.User, error) {
	var u session.User
	if _, err := s.client.DoJSON(ctx, api.Request{
		Path:   infoPath,
		Method: http.MethodPost,
		Body:   SolvedAccount{SolvedAcNickname: handle},
	}, &u); err != nil {
		return nil, err
	}
	if u.StudentName == "" && u.StudentNumber == "" {
		// Some deployments return an empty body here; refetch the profile.
		return s.FetchCurrentUser(ctx), nil
	}
	s.store.SetUser(&u)
	return &u, nil
}

// tokenFromBody digs a token field out of a decoded login body.
func tokenFromBody(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"accessToken", "token"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// userFromBody extracts a profile from a decoded login body, checking the
// top level and the usual envelope keys. Only a shape with a student name or
// number counts.
func userFromBody(data any) *session.User {
	m, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	for _, candidate := range []any{m, m["student"], m["user"], m["data"]} {
		cm, ok := candidate.(map[string]any)
		if !ok {
			continue
		}
		raw, err := json.Marshal(cm)
		if err != nil {
			continue
		}
		var u session.User
		if err := json.Unmarshal(raw, &u); err != nil {
			continue
		}
		if u.StudentName != "" || u.StudentNumber != "" {
			return &u
		}
	}
	return nil
}

package exhibit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/go-github/v68/github"

	"github.com/ampm-club/portal/internal/api"
)

const (
	basePath     = "/exhibits"
	uploadPath   = "/files/upload"
	downloadPath = "/files/download"
)

// ErrUploadRejected means the storage backend refused a presigned PUT.
var ErrUploadRejected = errors.New("upload rejected by storage")

// Service exposes the project showcase: exhibits, their image files, and
// README fetches for linked repositories.
type Service struct {
	client     *api.Client
	httpClient *http.Client
	github     *github.Client
	logger     *slog.Logger
}

// NewService creates an exhibit service. githubToken may be empty; requests
// then run unauthenticated against the public API with its tighter rate
// limits.
func NewService(client *api.Client, githubToken string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	gh := github.NewClient(nil)
	if githubToken != "" {
		gh = gh.WithAuthToken(githubToken)
	}
	return &Service{
		client:     client,
		httpClient: http.DefaultClient,
		github:     gh,
		logger:     logger,
	}
}

// List returns all exhibits.
func (s *Service) List(ctx context.Context) ([]Exhibit, error) {
	var out []Exhibit
	if _, err := s.client.DoJSON(ctx, api.Request{Path: basePath, Auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create posts a new exhibit.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Exhibit, error) {
	var out Exhibit
	if _, err := s.client.DoJSON(ctx, api.Request{
		Path:   basePath,
		Method: http.MethodPost,
		Body:   req,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadURL asks the backend for an upload ticket. The payload itself goes
// straight to storage via Upload, never through the portal.
func (s *Service) UploadURL(ctx context.Context) (*UploadTicket, error) {
	var out UploadTicket
	if _, err := s.client.DoJSON(ctx, api.Request{Path: uploadPath, Auth: true}, &out); err != nil {
		return nil, err
	}
	if out.FileID == "" || out.PresignedURL == "" {
		return nil, fmt.Errorf("incomplete upload ticket from %s", uploadPath)
	}
	return &out, nil
}

// Upload PUTs the payload to a presigned storage URL. The URL already
// carries its own authorization; no portal headers are added.
func (s *Service) Upload(ctx context.Context, presignedURL string, body io.Reader, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn("presigned upload failed", "status", resp.StatusCode, "detail", string(detail))
		return fmt.Errorf("%w: status %d", ErrUploadRejected, resp.StatusCode)
	}
	return nil
}

// DownloadURL resolves a file ID to a short-lived presigned download URL.
func (s *Service) DownloadURL(ctx context.Context, fileID string) (string, error) {
	var out struct {
		PresignedURL string `json:"presignedUrl"`
	}
	query := url.Values{"fileId": {fileID}}
	if _, err := s.client.DoJSON(ctx, api.Request{Path: downloadPath, Query: query, Auth: true}, &out); err != nil {
		return "", err
	}
	if out.PresignedURL == "" {
		return "", fmt.Errorf("no presigned URL for file %q", fileID)
	}
	return out.PresignedURL, nil
}

// Readme fetches a repository's README as raw markdown for showcase cards.
// ref may be empty for the default branch.
func (s *Service) Readme(ctx context.Context, owner, repo, ref string) (string, error) {
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	readme, _, err := s.github.Repositories.GetReadme(ctx, owner, repo, opts)
	if err != nil {
		return "", fmt.Errorf("fetch readme %s/%s: %w", owner, repo, err)
	}
	content, err := readme.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode readme %s/%s: %w", owner, repo, err)
	}
	return content, nil
}

package poll

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ampm-club/portal/internal/api"
)

const basePath = "/polls"

// Service exposes poll search, voting, and lifecycle operations. Listing
// and reading are public; everything mutating requires the session.
type Service struct {
	client *api.Client
	logger *slog.Logger
}

// NewService creates a poll service.
func NewService(client *api.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// List returns one page of polls matching the search filters.
func (s *Service) List(ctx context.Context, search SearchParams, page Pageable) (*Page, error) {
	query := url.Values{}
	if search.Query != "" {
		query.Set("query", search.Query)
	}
	if search.Status != "" {
		query.Set("status", search.Status)
	}
	if !search.DeadlineFrom.IsZero() {
		query.Set("deadlineFrom", search.DeadlineFrom.UTC().Format(time.RFC3339))
	}
	if !search.DeadlineTo.IsZero() {
		query.Set("deadlineTo", search.DeadlineTo.UTC().Format(time.RFC3339))
	}
	query.Set("page", strconv.Itoa(page.Page))
	if page.Size > 0 {
		query.Set("size", strconv.Itoa(page.Size))
	}
	for _, sort := range page.Sort {
		query.Add("sort", sort)
	}

	var out Page
	if _, err := s.client.DoJSON(ctx, api.Request{Path: basePath, Query: query}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the full poll, including the caller's vote state when
// authenticated.
func (s *Service) Get(ctx context.Context, id int64) (*Detail, error) {
	var out Detail
	if _, err := s.client.DoJSON(ctx, api.Request{Path: itemPath(id), Auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create opens a new poll and returns it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Detail, error) {
	var out Detail
	if _, err := s.client.DoJSON(ctx, api.Request{
		Path:   basePath,
		Method: http.MethodPost,
		Body:   req,
	}, &out); err != nil {
		return nil, err
	}
	s.logger.Info("poll created", "poll_id", out.ID, "title", out.Title)
	return &out, nil
}

// Vote casts the caller's vote. Revoting replaces the previous selection
// when the poll allows it; the backend rejects it otherwise.
func (s *Service) Vote(ctx context.Context, id int64, optionIDs []int64) error {
	_, err := s.client.Do(ctx, api.Request{
		Path:   itemPath(id) + "/votes",
		Method: http.MethodPost,
		Body:   VoteRequest{OptionIDs: optionIDs},
	})
	return err
}

// Close ends voting. Staff only.
func (s *Service) Close(ctx context.Context, id int64) error {
	_, err := s.client.Do(ctx, api.Request{
		Path:   itemPath(id) + "/close",
		Method: http.MethodPost,
	})
	return err
}

// Delete removes the poll. Staff only.
func (s *Service) Delete(ctx context.Context, id int64) error {
	_, err := s.client.Do(ctx, api.Request{
		Path:   itemPath(id),
		Method: http.MethodDelete,
	})
	return err
}

// Results returns the tally; the backend enforces the poll's result
// visibility policy.
func (s *Service) Results(ctx context.Context, id int64) (*Results, error) {
	var out Results
	if _, err := s.client.DoJSON(ctx, api.Request{Path: itemPath(id) + "/results", Auth: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func itemPath(id int64) string {
	return fmt.Sprintf("%s/%d", basePath, id)
}

package student

import (
	"context"
	"log/slog"

	"github.com/ampm-club/portal/internal/api"
)

const tiersPath = "/students/tiers"

// Service exposes the public leaderboard.
type Service struct {
	client *api.Client
	logger *slog.Logger
}

// NewService creates a student service.
func NewService(client *api.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// Tiers returns the ranked leaderboard. The endpoint is public; no bearer
// is attached.
func (s *Service) Tiers(ctx context.Context) ([]RankEntry, error) {
	var entries []RankEntry
	if _, err := s.client.DoJSON(ctx, api.Request{Path: tiersPath}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

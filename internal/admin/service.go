package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/ampm-club/portal/internal/api"
)

const (
	applicationsPath = "/admin/signup-applications"
	studentsPath     = "/admin/students"
)

// Service exposes the admin panel operations: settling signup applications
// and managing members. Every call requires a staff session; the backend
// rejects the rest.
type Service struct {
	client *api.Client
	logger *slog.Logger
}

// NewService creates an admin service.
func NewService(client *api.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, logger: logger}
}

// Applications lists signup applications, optionally filtered by status
// (PENDING, APPROVED, REJECTED). Empty status returns everything.
func (s *Service) Applications(ctx context.Context, status string) ([]SignupApplication, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var out []SignupApplication
	if _, err := s.client.DoJSON(ctx, api.Request{Path: applicationsPath, Query: query, Auth: true}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Approve settles the selected applications, activating their accounts.
func (s *Service) Approve(ctx context.Context, applicationIDs []int64) error {
	return s.settle(ctx, "approve", applicationIDs)
}

// Reject settles the selected applications without activating them.
func (s *Service) Reject(ctx context.Context, applicationIDs []int64) error {
	return s.settle(ctx, "reject", applicationIDs)
}

func (s *Service) settle(ctx context.Context, action string, applicationIDs []int64) error {
	_, err := s.client.Do(ctx, api.Request{
		Path:   applicationsPath + "/" + action,
		Method: http.MethodPost,
		Body:   ApplicationSelection{ApplicationIDs: applicationIDs},
	})
	if err != nil {
		return err
	}
	s.logger.Info("applications settled", "action", action, "count", len(applicationIDs))
	return nil
}

// Students lists every member.
func (s *Service) Students(ctx context.Context) ([]Student, error) {
	var out StudentList
	if _, err := s.client.DoJSON(ctx, api.Request{Path: studentsPath, Auth: true}, &out); err != nil {
		return nil, err
	}
	return out.Students, nil
}

// UpdateRole changes a student's role. The backend refuses a self-change so
// an admin cannot lock themselves out.
func (s *Service) UpdateRole(ctx context.Context, studentID int64, role string) error {
	_, err := s.client.Do(ctx, api.Request{
		Path:   fmt.Sprintf("%s/%d/role", studentsPath, studentID),
		Method: http.MethodPatch,
		Body:   RoleChange{Role: role},
	})
	return err
}

// Delete removes a student and their account.
func (s *Service) Delete(ctx context.Context, studentID int64) error {
	_, err := s.client.Do(ctx, api.Request{
		Path:   fmt.Sprintf("%s/%d", studentsPath, studentID),
		Method: http.MethodDelete,
	})
	return err
}

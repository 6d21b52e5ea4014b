package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/repository"
)

// Service handles meeting operations.
type Service struct {
	repo        Repository
	enrollments EnrollmentRepository
	logger      *slog.Logger
}

// NewService creates a new meeting service.
func NewService(repo Repository, enrollments EnrollmentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, enrollments: enrollments, logger: logger}
}

// CreateRequest defines meeting creation inputs.
type CreateRequest struct {
	ID           string
	SemesterID   string
	Name         string
	Type         Type
	StartsAt     time.Time
	EndsAt       time.Time
	Location     string
	HostUserID   string
	SmallGroupID string
	IsPublished  bool
}

// Create validates and stores a new meeting.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Meeting, error) {
	if strings.TrimSpace(req.SemesterID) == "" || !req.Type.Valid() {
		return nil, ErrInvalidInput
	}
	if req.StartsAt.IsZero() || !req.EndsAt.After(req.StartsAt) {
		return nil, ErrInvalidInput
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	m := &Meeting{
		ID:           id,
		SemesterID:   req.SemesterID,
		Name:         strings.TrimSpace(req.Name),
		Type:         req.Type,
		StartsAt:     req.StartsAt.UTC(),
		EndsAt:       req.EndsAt.UTC(),
		Location:     strings.TrimSpace(req.Location),
		HostUserID:   stringPtr(req.HostUserID),
		SmallGroupID: stringPtr(req.SmallGroupID),
		IsPublished:  req.IsPublished,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, fmt.Errorf("%w: unknown semester, host or small group", ErrInvalidInput)
		}
		return nil, fmt.Errorf("creating meeting: %w", err)
	}
	return m, nil
}

// Get fetches a meeting by ID.
func (s *Service) Get(ctx context.Context, id string) (*Meeting, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrMeetingNotFound
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("getting meeting: %w", err)
	}
	return m, nil
}

// List returns meetings matching the options.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Meeting, error) {
	return s.repo.List(ctx, opts)
}

// ExpectedAttendees returns the users who are supposed to attend m: the
// members of its small group, or everyone enrolled in its semester.
func (s *Service) ExpectedAttendees(ctx context.Context, m *Meeting) ([]user.User, error) {
	if m.SmallGroupID != nil {
		members, err := s.repo.ListSmallGroupMembers(ctx, *m.SmallGroupID)
		if err != nil {
			return nil, fmt.Errorf("loading small group members: %w", err)
		}
		return members, nil
	}

	enrolled, err := s.enrollments.ListEnrolled(ctx, m.SemesterID)
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}
	return enrolled, nil
}

func stringPtr(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

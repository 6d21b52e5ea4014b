package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rcos/rcos-io/internal/repository"
)

// institutionalDomain is the mail domain whose local part is the RCS id.
const institutionalDomain = "@rpi.edu"

const defaultSearchLimit = 20

// Service handles user lookups.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// CreateRequest defines user creation inputs.
type CreateRequest struct {
	ID          string
	Email       string
	RCSID       string
	FirstName   string
	LastName    string
	DisplayName string
	Role        Role
}

// Create creates a new user.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, ErrInvalidInput
	}
	role := req.Role
	if role == "" {
		role = RoleExternal
	}
	if role != RoleRPI && role != RoleExternal {
		return nil, ErrInvalidInput
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	u := &User{
		ID:          id,
		Email:       email,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DisplayName: strings.TrimSpace(req.DisplayName),
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	}
	if rcs := strings.ToLower(strings.TrimSpace(req.RCSID)); rcs != "" {
		u.RCSID = &rcs
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email or rcs id already registered", ErrInvalidInput)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

// Get fetches a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// Resolve maps a lookup string (user id, email or RCS id) to exactly one
// user. Empty and ambiguous lookups both yield ErrUserNotFound.
func (s *Service) Resolve(ctx context.Context, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrUserNotFound
	}

	matches, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("resolving user: %w", err)
	}

	if len(matches) == 0 {
		lower := strings.ToLower(identifier)
		if local, ok := strings.CutSuffix(lower, institutionalDomain); ok && local != "" {
			matches, err = s.repo.FindByIdentifier(ctx, local)
			if err != nil {
				return nil, fmt.Errorf("resolving user: %w", err)
			}
		}
	}

	if len(matches) != 1 {
		if len(matches) > 1 {
			s.logger.Warn("ambiguous user identifier", "identifier", identifier, "matches", len(matches))
		}
		return nil, ErrUserNotFound
	}
	return &matches[0], nil
}

// Search returns users whose names, email or RCS id match the query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.repo.Search(ctx, query, limit)
}

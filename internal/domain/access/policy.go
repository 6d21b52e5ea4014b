// Package access decides who may host a meeting's attendance.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/repository"
)

// ErrPermissionDenied indicates the caller lacks the role for the action.
var ErrPermissionDenied = errors.New("permission denied")

// EnrollmentRepository loads a user's enrollment for a semester.
type EnrollmentRepository interface {
	GetEnrollment(ctx context.Context, semesterID, userID string) (*user.Enrollment, error)
}

// MentorRepository answers whether a user mentors a small group.
type MentorRepository interface {
	IsSmallGroupMentor(ctx context.Context, smallGroupID, userID string) (bool, error)
}

// Policy is the single capability check shared by every attendance action
// that acts on behalf of a meeting.
type Policy struct {
	enrollments EnrollmentRepository
	mentors     MentorRepository
}

// NewPolicy creates a policy backed by enrollment and mentor lookups.
func NewPolicy(enrollments EnrollmentRepository, mentors MentorRepository) *Policy {
	return &Policy{enrollments: enrollments, mentors: mentors}
}

// CanHost returns nil when callerID may open, close or manually record
// attendance for m: semester coordinators and faculty advisors, the
// meeting's designated host, and mentors of the meeting's small group.
func (p *Policy) CanHost(ctx context.Context, callerID string, m *meeting.Meeting) error {
	if callerID == "" || m == nil {
		return ErrPermissionDenied
	}

	if m.HostUserID != nil && *m.HostUserID == callerID {
		return nil
	}

	coordinator, err := p.IsCoordinator(ctx, callerID, m.SemesterID)
	if err != nil {
		return err
	}
	if coordinator {
		return nil
	}

	if m.SmallGroupID != nil {
		mentor, err := p.mentors.IsSmallGroupMentor(ctx, *m.SmallGroupID, callerID)
		if err != nil {
			return fmt.Errorf("checking small group mentor: %w", err)
		}
		if mentor {
			return nil
		}
	}

	return ErrPermissionDenied
}

// IsCoordinator reports whether callerID coordinates semesterID.
func (p *Policy) IsCoordinator(ctx context.Context, callerID, semesterID string) (bool, error) {
	enrollment, err := p.enrollments.GetEnrollment(ctx, semesterID, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("loading enrollment: %w", err)
	}
	return enrollment.CoordinatorOrAbove(), nil
}

package meeting

import (
	"context"

	"github.com/rcos/rcos-io/internal/domain/user"
)

// Repository provides persistence for meetings and small groups.
type Repository interface {
	Create(ctx context.Context, m *Meeting) error
	Get(ctx context.Context, id string) (*Meeting, error)
	List(ctx context.Context, opts ListOptions) ([]Meeting, error)
	GetSmallGroup(ctx context.Context, id string) (*SmallGroup, error)
	ListSmallGroupMembers(ctx context.Context, smallGroupID string) ([]user.User, error)
}

// EnrollmentRepository lists users enrolled in a semester.
type EnrollmentRepository interface {
	ListEnrolled(ctx context.Context, semesterID string) ([]user.User, error)
}

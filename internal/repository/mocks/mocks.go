package mocks

import (
	"context"

	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/stretchr/testify/mock"
)

// UserRepository is a mock for user.Repository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if u, ok := args.Get(0).(*user.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) FindByIdentifier(ctx context.Context, identifier string) ([]user.User, error) {
	args := m.Called(ctx, identifier)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) Search(ctx context.Context, query string, limit int) ([]user.User, error) {
	args := m.Called(ctx, query, limit)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// MeetingRepository is a mock for meeting.Repository.
type MeetingRepository struct {
	mock.Mock
}

func (m *MeetingRepository) Create(ctx context.Context, mtg *meeting.Meeting) error {
	args := m.Called(ctx, mtg)
	return args.Error(0)
}

func (m *MeetingRepository) Get(ctx context.Context, id string) (*meeting.Meeting, error) {
	args := m.Called(ctx, id)
	if mtg, ok := args.Get(0).(*meeting.Meeting); ok {
		return mtg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) List(ctx context.Context, opts meeting.ListOptions) ([]meeting.Meeting, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]meeting.Meeting); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) GetSmallGroup(ctx context.Context, id string) (*meeting.SmallGroup, error) {
	args := m.Called(ctx, id)
	if sg, ok := args.Get(0).(*meeting.SmallGroup); ok {
		return sg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) ListSmallGroupMembers(ctx context.Context, smallGroupID string) ([]user.User, error) {
	args := m.Called(ctx, smallGroupID)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MeetingRepository) IsSmallGroupMentor(ctx context.Context, smallGroupID, userID string) (bool, error) {
	args := m.Called(ctx, smallGroupID, userID)
	return args.Bool(0), args.Error(1)
}

// EnrollmentRepository is a mock for the enrollment lookups used by
// meeting.Service and access.Policy.
type EnrollmentRepository struct {
	mock.Mock
}

func (m *EnrollmentRepository) GetEnrollment(ctx context.Context, semesterID, userID string) (*user.Enrollment, error) {
	args := m.Called(ctx, semesterID, userID)
	if e, ok := args.Get(0).(*user.Enrollment); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EnrollmentRepository) ListEnrolled(ctx context.Context, semesterID string) ([]user.User, error) {
	args := m.Called(ctx, semesterID)
	if list, ok := args.Get(0).([]user.User); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AttendanceRepository is a mock for attendance.AttendanceRepository.
type AttendanceRepository struct {
	mock.Mock
}

func (m *AttendanceRepository) Upsert(ctx context.Context, rec *attendance.Record) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *AttendanceRepository) Get(ctx context.Context, meetingID, userID string) (*attendance.Record, error) {
	args := m.Called(ctx, meetingID, userID)
	if rec, ok := args.Get(0).(*attendance.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AttendanceRepository) List(ctx context.Context, meetingID string) ([]attendance.Attendee, error) {
	args := m.Called(ctx, meetingID)
	if list, ok := args.Get(0).([]attendance.Attendee); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

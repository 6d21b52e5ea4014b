package attendance

import (
	"context"
	"time"

	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

// RoomStore holds live rooms with native per-key expiry. Missing or expired
// rooms yield repository.ErrNotFound.
type RoomStore interface {
	// Put stores room for meetingID, replacing any live room, its code and
	// its pending verifications.
	Put(ctx context.Context, room Room, ttl time.Duration) error
	Get(ctx context.Context, meetingID string) (*Room, error)
	// LookupCode returns the meeting a code was minted for.
	LookupCode(ctx context.Context, code string) (string, error)
	// Delete removes the room only if code is its current code; a mismatch
	// yields repository.ErrConflict and leaves the room in place.
	Delete(ctx context.Context, meetingID, code string) error

	MarkPending(ctx context.Context, room Room, userID string) error
	IsPending(ctx context.Context, meetingID, userID string) (bool, error)
	ClearPending(ctx context.Context, meetingID, userID string) (bool, error)
	// Pending lists, sorted, the users held for a spot check in the
	// meeting's live room.
	Pending(ctx context.Context, meetingID string) ([]string, error)
}

// AttendanceRepository persists attendance records.
type AttendanceRepository interface {
	// Upsert inserts rec unless (MeetingID, UserID) already exists, in one
	// atomic statement. rec is overwritten with the stored row and created
	// reports whether this call inserted it.
	Upsert(ctx context.Context, rec *Record) (created bool, err error)
	Get(ctx context.Context, meetingID, userID string) (*Record, error)
	List(ctx context.Context, meetingID string) ([]Attendee, error)
}

// Meetings provides meeting lookups.
type Meetings interface {
	Get(ctx context.Context, id string) (*meeting.Meeting, error)
	ExpectedAttendees(ctx context.Context, m *meeting.Meeting) ([]user.User, error)
}

// Users resolves lookup strings to users.
type Users interface {
	Resolve(ctx context.Context, identifier string) (*user.User, error)
}

// HostPolicy is the capability check for acting on behalf of a meeting.
type HostPolicy interface {
	CanHost(ctx context.Context, callerID string, m *meeting.Meeting) error
}

// ActivityRepository records attendance events.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}

package attendance

import (
	"time"

	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

// Room is the live, expiring state of a meeting that is open for check-in.
// It only exists in the RoomStore.
type Room struct {
	MeetingID        string    `json:"meeting_id"`
	Code             string    `json:"code"`
	OpenedBy         string    `json:"opened_by"`
	OpenedAt         time.Time `json:"opened_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	VerificationRate float64   `json:"verification_rate,omitempty"`
}

// Record is the durable fact that a user was present at a meeting. At most
// one exists per (MeetingID, UserID).
type Record struct {
	MeetingID       string    `json:"meeting_id"`
	UserID          string    `json:"user_id"`
	IsManuallyAdded bool      `json:"is_manually_added"`
	CreatedAt       time.Time `json:"created_at"`
}

// Attendee pairs an attendance record with the user it belongs to.
type Attendee struct {
	Record
	User user.User `json:"user"`
}

// MeetingAttendance is the host's view of a meeting: who attended, who
// was expected but has not checked in, and who is waiting for a host to
// confirm them after a spot check.
type MeetingAttendance struct {
	Meeting              meeting.Meeting `json:"meeting"`
	Room                 *Room           `json:"room,omitempty"`
	Attendees            []Attendee      `json:"attendees"`
	Absent               []user.User     `json:"absent"`
	AwaitingVerification []user.User     `json:"awaiting_verification"`
}

// SubmitResult describes a successful attendance submission.
type SubmitResult struct {
	Record    Record    `json:"record"`
	User      user.User `json:"user"`
	Duplicate bool      `json:"duplicate"`
	Message   string    `json:"message"`
}

// RoomStatus is what any signed-in user may learn about a meeting's room.
// Code is only filled in for callers who can host the meeting.
type RoomStatus struct {
	MeetingID string     `json:"meeting_id"`
	Open      bool       `json:"open"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Code      string     `json:"code,omitempty"`
}

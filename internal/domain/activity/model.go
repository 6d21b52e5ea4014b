package activity

import "time"

// ActivityType represents the type of attendance event
type ActivityType string

const (
	TypeRoomOpened           ActivityType = "room_opened"
	TypeRoomClosed           ActivityType = "room_closed"
	TypeAttendanceRecorded   ActivityType = "attendance_recorded"
	TypeVerificationRequired ActivityType = "verification_required"
)

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	MeetingID    string       `json:"meeting_id"`
	ActorID      string       `json:"actor_id"`
	SubjectID    *string      `json:"subject_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	CreatedAt    time.Time    `json:"created_at"`
}

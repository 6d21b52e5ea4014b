package mcp

import (
	"time"

	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/user"
)

type OpenAttendanceParams struct {
	MeetingID  string `json:"meeting_id" jsonschema:"ID of the meeting to open attendance for"`
	TTLMinutes int    `json:"ttl_minutes,omitempty" jsonschema:"how long the room stays open; defaults to the rest of the meeting"`
}

type OpenAttendanceResponse struct {
	MeetingID string    `json:"meeting_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CloseAttendanceParams struct {
	MeetingID string `json:"meeting_id" jsonschema:"ID of the meeting whose room to close"`
	Code      string `json:"code" jsonschema:"the live attendance code"`
}

type CloseAttendanceResponse struct {
	Redirect string `json:"redirect"`
}

type AttendanceStatusParams struct {
	MeetingID string `json:"meeting_id" jsonschema:"ID of the meeting"`
}

type RecordAttendanceParams struct {
	MeetingID string `json:"meeting_id" jsonschema:"ID of the meeting"`
	Code      string `json:"code" jsonschema:"the live attendance code"`
	Subject   string `json:"subject" jsonschema:"user id, email or RCS ID of the attendee"`
}

type MeetingAttendanceParams struct {
	MeetingID string `json:"meeting_id" jsonschema:"ID of the meeting"`
}

type SearchUsersParams struct {
	MeetingID string `json:"meeting_id" jsonschema:"ID of a meeting you host; results are for recording its attendance"`
	Query     string `json:"query" jsonschema:"name, email or RCS ID prefix"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of users to return"`
}

type SearchUsersResponse struct {
	Users []user.User `json:"users"`
}

type RecordAttendanceResponse = attendance.SubmitResult

type AttendanceStatusResponse = attendance.RoomStatus

type MeetingAttendanceResponse = attendance.MeetingAttendance

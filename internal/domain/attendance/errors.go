package attendance

import (
	"errors"

	"github.com/rcos/rcos-io/internal/domain/access"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

var (
	// ErrPermissionDenied indicates the caller may not host the meeting.
	ErrPermissionDenied = access.ErrPermissionDenied
	// ErrMeetingNotFound indicates the meeting doesn't exist.
	ErrMeetingNotFound = meeting.ErrMeetingNotFound
	// ErrUserNotFound indicates the subject did not resolve to one user.
	ErrUserNotFound = user.ErrUserNotFound
	// ErrRoomClosed indicates there is no live room to check in to.
	ErrRoomClosed = errors.New("attendance room closed")
	// ErrRoomNotFound indicates there is no live room to close.
	ErrRoomNotFound = errors.New("no live attendance room")
	// ErrInvalidCode indicates the code does not match the live room.
	ErrInvalidCode = errors.New("invalid attendance code")
	// ErrVerificationRequired indicates the user was picked for a manual
	// spot check and must be added by a host.
	ErrVerificationRequired = errors.New("manual verification required")
)

var displayMessages = []struct {
	err error
	msg string
}{
	{ErrPermissionDenied, "You do not have permission to manage attendance for this meeting."},
	{ErrMeetingNotFound, "Meeting not found."},
	{ErrUserNotFound, "No single user matches that name, email or RCS ID."},
	{ErrRoomClosed, "This meeting is not open for attendance."},
	{ErrRoomNotFound, "There is no open attendance room for this meeting."},
	{ErrInvalidCode, "That attendance code is not valid for this meeting."},
	{ErrVerificationRequired, "You have been selected for a manual attendance check. Please see a meeting host."},
}

// DisplayMessage returns the short user-facing message for a domain error.
// It reports false for infrastructure failures, which callers should log
// and hide.
func DisplayMessage(err error) (string, bool) {
	for _, d := range displayMessages {
		if errors.Is(err, d.err) {
			return d.msg, true
		}
	}
	return "", false
}

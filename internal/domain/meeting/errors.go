package meeting

import "errors"

var (
	// ErrMeetingNotFound indicates the meeting doesn't exist.
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrSmallGroupNotFound indicates the small group doesn't exist.
	ErrSmallGroupNotFound = errors.New("small group not found")
	// ErrInvalidInput indicates invalid meeting input.
	ErrInvalidInput = errors.New("invalid meeting input")
)

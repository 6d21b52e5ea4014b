package user

import "errors"

var (
	// ErrUserNotFound indicates the identifier matched no user or more than one.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidInput indicates invalid user input.
	ErrInvalidInput = errors.New("invalid user input")
)

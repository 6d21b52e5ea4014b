package repository

import "errors"

var (
	// ErrNotFound is returned when a requested row or key doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a compare-and-swap style check fails
	ErrConflict = errors.New("conflict: stored value does not match")

	// ErrDuplicate is returned when a unique constraint rejects an insert
	ErrDuplicate = errors.New("duplicate entity")

	// ErrForeignKeyViolation is returned when a foreign key constraint fails
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/repository"
)

// AttendanceRepository implements attendance.AttendanceRepository for SQLite
type AttendanceRepository struct {
	db *DB
}

// NewAttendanceRepository creates a new AttendanceRepository
func NewAttendanceRepository(db *DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts rec unless the (meeting, user) pair already has a record.
// The insert and the uniqueness check are one statement, so concurrent
// submissions for the same pair leave exactly one row. rec is overwritten
// with the stored row.
func (r *AttendanceRepository) Upsert(ctx context.Context, rec *attendance.Record) (bool, error) {
	query := `
		INSERT INTO meeting_attendances (meeting_id, user_id, is_manually_added, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(meeting_id, user_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.MeetingID,
		rec.UserID,
		rec.IsManuallyAdded,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, repository.ErrForeignKeyViolation
		}
		return false, fmt.Errorf("failed to upsert attendance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return true, nil
	}

	existing, err := r.Get(ctx, rec.MeetingID, rec.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to load existing attendance: %w", err)
	}
	*rec = *existing
	return false, nil
}

// Get retrieves the attendance record of a user at a meeting
func (r *AttendanceRepository) Get(ctx context.Context, meetingID, userID string) (*attendance.Record, error) {
	query := `
		SELECT meeting_id, user_id, is_manually_added, created_at
		FROM meeting_attendances
		WHERE meeting_id = ? AND user_id = ?
	`

	var rec attendance.Record
	err := r.db.QueryRowContext(ctx, query, meetingID, userID).Scan(
		&rec.MeetingID,
		&rec.UserID,
		&rec.IsManuallyAdded,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &rec, nil
}

// List returns a meeting's attendees in check-in order
func (r *AttendanceRepository) List(ctx context.Context, meetingID string) ([]attendance.Attendee, error) {
	query := `
		SELECT a.meeting_id, a.user_id, a.is_manually_added, a.created_at, ` + userColumns + `
		FROM meeting_attendances a
		JOIN users u ON u.id = a.user_id
		WHERE a.meeting_id = ?
		ORDER BY a.created_at, a.user_id
	`

	rows, err := r.db.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances: %w", err)
	}
	defer rows.Close()

	attendees := []attendance.Attendee{}
	for rows.Next() {
		var a attendance.Attendee
		var rcsID sql.NullString
		if err := rows.Scan(
			&a.MeetingID,
			&a.UserID,
			&a.IsManuallyAdded,
			&a.CreatedAt,
			&a.User.ID,
			&a.User.Email,
			&rcsID,
			&a.User.FirstName,
			&a.User.LastName,
			&a.User.DisplayName,
			&a.User.Role,
			&a.User.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		if rcsID.Valid {
			a.User.RCSID = &rcsID.String
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows: %w", err)
	}
	return attendees, nil
}

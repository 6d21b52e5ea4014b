package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/repository"
)

const meetingColumns = `
	id, semester_id, name, type, start_date_time, end_date_time,
	location, host_user_id, small_group_id, is_published, created_at
`

// MeetingRepository implements meeting, semester and small group
// persistence for SQLite
type MeetingRepository struct {
	db *DB
}

// NewMeetingRepository creates a new MeetingRepository
func NewMeetingRepository(db *DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// Create inserts a new meeting
func (r *MeetingRepository) Create(ctx context.Context, m *meeting.Meeting) error {
	query := `
		INSERT INTO meetings (` + meetingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.SemesterID,
		m.Name,
		m.Type,
		m.StartsAt.UTC(),
		m.EndsAt.UTC(),
		m.Location,
		m.HostUserID,
		m.SmallGroupID,
		m.IsPublished,
		m.CreatedAt.UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

// Get retrieves a meeting by ID
func (r *MeetingRepository) Get(ctx context.Context, id string) (*meeting.Meeting, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

// List returns meetings matching the given filters, earliest first
func (r *MeetingRepository) List(ctx context.Context, opts meeting.ListOptions) ([]meeting.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings`

	args := []interface{}{}
	conditions := []string{}

	if opts.SemesterID != "" {
		conditions = append(conditions, "semester_id = ?")
		args = append(args, opts.SemesterID)
	}
	if opts.OnlyPublished {
		conditions = append(conditions, "is_published = 1")
	}
	if opts.StartsAfter != nil {
		conditions = append(conditions, "start_date_time >= ?")
		args = append(args, opts.StartsAfter.UTC())
	}
	if opts.StartsBefore != nil {
		conditions = append(conditions, "start_date_time < ?")
		args = append(args, opts.StartsBefore.UTC())
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY start_date_time, id"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	meetings := []meeting.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meeting rows: %w", err)
	}
	return meetings, nil
}

// CreateSemester inserts a new semester
func (r *MeetingRepository) CreateSemester(ctx context.Context, s *meeting.Semester) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO semesters (id, name, start_date, end_date) VALUES (?, ?, ?, ?)`,
		s.ID, s.Name, s.StartsOn.UTC(), s.EndsOn.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create semester: %w", err)
	}
	return nil
}

// CreateSmallGroup inserts a new small group
func (r *MeetingRepository) CreateSmallGroup(ctx context.Context, g *meeting.SmallGroup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO small_groups (id, semester_id, title, location) VALUES (?, ?, ?, ?)`,
		g.ID, g.SemesterID, g.Title, g.Location,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create small group: %w", err)
	}
	return nil
}

// GetSmallGroup retrieves a small group by ID
func (r *MeetingRepository) GetSmallGroup(ctx context.Context, id string) (*meeting.SmallGroup, error) {
	var g meeting.SmallGroup
	err := r.db.QueryRowContext(ctx,
		`SELECT id, semester_id, title, location FROM small_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.SemesterID, &g.Title, &g.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get small group: %w", err)
	}
	return &g, nil
}

// AddSmallGroupMentor makes a user a mentor of a small group. Adding an
// existing mentor is a no-op.
func (r *MeetingRepository) AddSmallGroupMentor(ctx context.Context, smallGroupID, userID string) error {
	return r.addSmallGroupUser(ctx, "small_group_mentors", smallGroupID, userID)
}

// AddSmallGroupMember adds a user to a small group. Adding an existing
// member is a no-op.
func (r *MeetingRepository) AddSmallGroupMember(ctx context.Context, smallGroupID, userID string) error {
	return r.addSmallGroupUser(ctx, "small_group_members", smallGroupID, userID)
}

func (r *MeetingRepository) addSmallGroupUser(ctx context.Context, table, smallGroupID, userID string) error {
	query := `INSERT INTO ` + table + ` (small_group_id, user_id) VALUES (?, ?)
		ON CONFLICT(small_group_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, smallGroupID, userID); err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to add user to %s: %w", table, err)
	}
	return nil
}

// IsSmallGroupMentor reports whether a user mentors a small group
func (r *MeetingRepository) IsSmallGroupMentor(ctx context.Context, smallGroupID, userID string) (bool, error) {
	var found int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM small_group_mentors WHERE small_group_id = ? AND user_id = ?`,
		smallGroupID, userID,
	).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check small group mentor: %w", err)
	}
	return true, nil
}

// ListSmallGroupMembers returns the members of a small group
func (r *MeetingRepository) ListSmallGroupMembers(ctx context.Context, smallGroupID string) ([]user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM small_group_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.small_group_id = ?
		ORDER BY u.last_name, u.first_name, u.id
	`
	return queryUsers(ctx, r.db, query, smallGroupID)
}

func scanMeeting(row rowScanner) (*meeting.Meeting, error) {
	var m meeting.Meeting
	var hostUserID, smallGroupID sql.NullString
	if err := row.Scan(
		&m.ID,
		&m.SemesterID,
		&m.Name,
		&m.Type,
		&m.StartsAt,
		&m.EndsAt,
		&m.Location,
		&hostUserID,
		&smallGroupID,
		&m.IsPublished,
		&m.CreatedAt,
	); err != nil {
		return nil, err
	}
	if hostUserID.Valid {
		m.HostUserID = &hostUserID.String
	}
	if smallGroupID.Valid {
		m.SmallGroupID = &smallGroupID.String
	}
	return &m, nil
}

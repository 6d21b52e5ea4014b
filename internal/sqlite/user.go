package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/repository"
)

const userColumns = `u.id, u.email, u.rcs_id, u.first_name, u.last_name, u.display_name, u.role, u.created_at`

// UserRepository implements user and enrollment persistence for SQLite
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (
			id, email, rcs_id, first_name, last_name, display_name, role, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.RCSID,
		u.FirstName,
		u.LastName,
		u.DisplayName,
		u.Role,
		u.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID
func (r *UserRepository) Get(ctx context.Context, id string) (*user.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// FindByIdentifier returns the users whose id, email or RCS id equals the
// identifier. Email and RCS id comparisons ignore case. At most two rows are
// returned, which is enough for callers to detect ambiguity.
func (r *UserRepository) FindByIdentifier(ctx context.Context, identifier string) ([]user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users u
		WHERE u.id = ? OR lower(u.email) = lower(?) OR lower(u.rcs_id) = lower(?)
		ORDER BY u.id
		LIMIT 2
	`
	return r.queryUsers(ctx, query, identifier, identifier, identifier)
}

// Search performs a prefix full-text search over names, email and RCS id
func (r *UserRepository) Search(ctx context.Context, query string, limit int) ([]user.User, error) {
	match := ftsPrefixQuery(query)
	if match == "" {
		return []user.User{}, nil
	}

	sqlQuery := `
		SELECT ` + userColumns + `
		FROM users_fts
		JOIN users u ON u.rowid = users_fts.rowid
		WHERE users_fts MATCH ?
		ORDER BY users_fts.rank, u.last_name, u.first_name
	`
	args := []interface{}{match}
	if limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, limit)
	}
	return r.queryUsers(ctx, sqlQuery, args...)
}

// CreateEnrollment enrolls a user in a semester
func (r *UserRepository) CreateEnrollment(ctx context.Context, e *user.Enrollment) error {
	query := `
		INSERT INTO enrollments (
			semester_id, user_id, project_id, is_project_lead,
			is_coordinator, is_faculty_advisor, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		e.SemesterID,
		e.UserID,
		e.ProjectID,
		e.IsProjectLead,
		e.IsCoordinator,
		e.IsFacultyAdvisor,
		e.CreatedAt.UTC(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}
	return nil
}

// GetEnrollment retrieves a user's enrollment for a semester
func (r *UserRepository) GetEnrollment(ctx context.Context, semesterID, userID string) (*user.Enrollment, error) {
	query := `
		SELECT
			semester_id, user_id, project_id, is_project_lead,
			is_coordinator, is_faculty_advisor, created_at
		FROM enrollments
		WHERE semester_id = ? AND user_id = ?
	`

	var e user.Enrollment
	var projectID sql.NullString
	err := r.db.QueryRowContext(ctx, query, semesterID, userID).Scan(
		&e.SemesterID,
		&e.UserID,
		&projectID,
		&e.IsProjectLead,
		&e.IsCoordinator,
		&e.IsFacultyAdvisor,
		&e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	if projectID.Valid {
		e.ProjectID = &projectID.String
	}
	return &e, nil
}

// ListEnrolled returns every user enrolled in a semester
func (r *UserRepository) ListEnrolled(ctx context.Context, semesterID string) ([]user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM enrollments e
		JOIN users u ON u.id = e.user_id
		WHERE e.semester_id = ?
		ORDER BY u.last_name, u.first_name, u.id
	`
	return r.queryUsers(ctx, query, semesterID)
}

func (r *UserRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]user.User, error) {
	return queryUsers(ctx, r.db, query, args...)
}

func queryUsers(ctx context.Context, db *DB, query string, args ...interface{}) ([]user.User, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	var rcsID sql.NullString
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&rcsID,
		&u.FirstName,
		&u.LastName,
		&u.DisplayName,
		&u.Role,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	if rcsID.Valid {
		u.RCSID = &rcsID.String
	}
	return &u, nil
}

// ftsPrefixQuery turns free text into an FTS5 query matching every term as
// a prefix. Terms are quoted so user input cannot inject FTS syntax.
func ftsPrefixQuery(text string) string {
	fields := strings.Fields(text)
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.ReplaceAll(field, `"`, `""`)
		terms = append(terms, `"`+field+`"*`)
	}
	return strings.Join(terms, " ")
}

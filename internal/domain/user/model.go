package user

import "time"

// Role distinguishes institutional members from external collaborators.
type Role string

const (
	RoleRPI      Role = "rpi"
	RoleExternal Role = "external"
)

// User is a member of the organization as far as attendance needs it.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	RCSID       *string   `json:"rcs_id,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name returns the best human-readable name for the user.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.FirstName != "" || u.LastName != "" {
		if u.LastName == "" {
			return u.FirstName
		}
		if u.FirstName == "" {
			return u.LastName
		}
		return u.FirstName + " " + u.LastName
	}
	if u.RCSID != nil && *u.RCSID != "" {
		return *u.RCSID
	}
	return u.Email
}

// Enrollment is a user's participation in one semester.
type Enrollment struct {
	SemesterID       string    `json:"semester_id"`
	UserID           string    `json:"user_id"`
	ProjectID        *string   `json:"project_id,omitempty"`
	IsProjectLead    bool      `json:"is_project_lead"`
	IsCoordinator    bool      `json:"is_coordinator"`
	IsFacultyAdvisor bool      `json:"is_faculty_advisor"`
	CreatedAt        time.Time `json:"created_at"`
}

// CoordinatorOrAbove reports whether the enrollment grants semester-wide
// coordination rights.
func (e Enrollment) CoordinatorOrAbove() bool {
	return e.IsCoordinator || e.IsFacultyAdvisor
}

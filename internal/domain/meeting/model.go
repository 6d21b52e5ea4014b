package meeting

import "time"

// Type classifies a meeting. Values must match the meetings.type CHECK
// constraint in the schema.
type Type string

const (
	TypeSmallGroup   Type = "small_group"
	TypeLargeGroup   Type = "large_group"
	TypeWorkshop     Type = "workshop"
	TypeBonus        Type = "bonus"
	TypeMentors      Type = "mentors"
	TypeCoordinators Type = "coordinators"
	TypeOther        Type = "other"
)

// Valid reports whether t is a known meeting type.
func (t Type) Valid() bool {
	switch t {
	case TypeSmallGroup, TypeLargeGroup, TypeWorkshop, TypeBonus,
		TypeMentors, TypeCoordinators, TypeOther:
		return true
	}
	return false
}

// Meeting is a scheduled gathering that attendance is taken for.
type Meeting struct {
	ID           string    `json:"id"`
	SemesterID   string    `json:"semester_id"`
	Name         string    `json:"name,omitempty"`
	Type         Type      `json:"type"`
	StartsAt     time.Time `json:"start_date_time"`
	EndsAt       time.Time `json:"end_date_time"`
	Location     string    `json:"location,omitempty"`
	HostUserID   *string   `json:"host_user_id,omitempty"`
	SmallGroupID *string   `json:"small_group_id,omitempty"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"`
}

// Title returns the display name, falling back to the meeting type.
func (m Meeting) Title() string {
	if m.Name != "" {
		return m.Name
	}
	return string(m.Type)
}

// InProgress reports whether now falls inside the meeting's scheduled window.
func (m Meeting) InProgress(now time.Time) bool {
	return !now.Before(m.StartsAt) && now.Before(m.EndsAt)
}

// Semester is an academic term that meetings and enrollments belong to.
type Semester struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	StartsOn time.Time `json:"start_date"`
	EndsOn   time.Time `json:"end_date"`
}

// SmallGroup is a sub-division of a semester led by mentors.
type SmallGroup struct {
	ID         string `json:"id"`
	SemesterID string `json:"semester_id"`
	Title      string `json:"title"`
	Location   string `json:"location,omitempty"`
}

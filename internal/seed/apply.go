package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
)

type Users interface {
	Create(ctx context.Context, req user.CreateRequest) (*user.User, error)
}

type Meetings interface {
	Create(ctx context.Context, req meeting.CreateRequest) (*meeting.Meeting, error)
}

// Calendar covers the semester and small group writes, which have no
// domain service of their own.
type Calendar interface {
	CreateSemester(ctx context.Context, s *meeting.Semester) error
	CreateSmallGroup(ctx context.Context, g *meeting.SmallGroup) error
	AddSmallGroupMentor(ctx context.Context, smallGroupID, userID string) error
	AddSmallGroupMember(ctx context.Context, smallGroupID, userID string) error
}

type Enrollments interface {
	CreateEnrollment(ctx context.Context, e *user.Enrollment) error
}

type APIKeys interface {
	Create(ctx context.Context, token, userID, description string) error
}

// Loader writes fixtures through the domain services so the same
// validation applies as for live traffic.
type Loader struct {
	users       Users
	meetings    Meetings
	calendar    Calendar
	enrollments Enrollments
	apiKeys     APIKeys
	now         func() time.Time
	logger      *slog.Logger
}

func NewLoader(users Users, meetings Meetings, calendar Calendar, enrollments Enrollments, apiKeys APIKeys, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{
		users:       users,
		meetings:    meetings,
		calendar:    calendar,
		enrollments: enrollments,
		apiKeys:     apiKeys,
		now:         time.Now,
		logger:      logger,
	}
}

// Summary counts what Apply created.
type Summary struct {
	Semesters   int
	Users       int
	APIKeys     int
	Enrollments int
	SmallGroups int
	Meetings    int
}

// Apply creates every entity in f in dependency order. It stops at the
// first failure; entities created before it are kept.
func (l *Loader) Apply(ctx context.Context, f *Fixture) (Summary, error) {
	var sum Summary
	now := l.now().UTC()

	for _, s := range f.Semesters {
		err := l.calendar.CreateSemester(ctx, &meeting.Semester{
			ID: s.ID, Name: s.Name, StartsOn: s.StartsOn, EndsOn: s.EndsOn,
		})
		if err != nil {
			return sum, fmt.Errorf("semester %q: %w", s.ID, err)
		}
		sum.Semesters++
	}

	for _, u := range f.Users {
		created, err := l.users.Create(ctx, user.CreateRequest{
			ID:          u.ID,
			Email:       u.Email,
			RCSID:       u.RCSID,
			FirstName:   u.FirstName,
			LastName:    u.LastName,
			DisplayName: u.DisplayName,
			Role:        user.Role(u.Role),
		})
		if err != nil {
			return sum, fmt.Errorf("user %q: %w", u.Email, err)
		}
		sum.Users++

		if u.APIKey != "" {
			if err := l.apiKeys.Create(ctx, u.APIKey, created.ID, "seed"); err != nil {
				return sum, fmt.Errorf("api key for %q: %w", u.Email, err)
			}
			sum.APIKeys++
		}

		for _, e := range u.Enrollments {
			err := l.enrollments.CreateEnrollment(ctx, &user.Enrollment{
				SemesterID:       e.Semester,
				UserID:           created.ID,
				IsProjectLead:    e.ProjectLead,
				IsCoordinator:    e.Coordinator,
				IsFacultyAdvisor: e.FacultyAdvisor,
				CreatedAt:        now,
			})
			if err != nil {
				return sum, fmt.Errorf("enrollment of %q in %q: %w", u.Email, e.Semester, err)
			}
			sum.Enrollments++
		}
	}

	for _, g := range f.SmallGroups {
		err := l.calendar.CreateSmallGroup(ctx, &meeting.SmallGroup{
			ID: g.ID, SemesterID: g.Semester, Title: g.Title, Location: g.Location,
		})
		if err != nil {
			return sum, fmt.Errorf("small group %q: %w", g.ID, err)
		}
		for _, id := range g.Mentors {
			if err := l.calendar.AddSmallGroupMentor(ctx, g.ID, id); err != nil {
				return sum, fmt.Errorf("small group %q mentor %q: %w", g.ID, id, err)
			}
		}
		for _, id := range g.Members {
			if err := l.calendar.AddSmallGroupMember(ctx, g.ID, id); err != nil {
				return sum, fmt.Errorf("small group %q member %q: %w", g.ID, id, err)
			}
		}
		sum.SmallGroups++
	}

	for _, m := range f.Meetings {
		start, end, err := m.window(now)
		if err != nil {
			return sum, err
		}
		published := true
		if m.Published != nil {
			published = *m.Published
		}
		created, err := l.meetings.Create(ctx, meeting.CreateRequest{
			ID:           m.ID,
			SemesterID:   m.Semester,
			Name:         m.Name,
			Type:         meeting.Type(m.Type),
			StartsAt:     start,
			EndsAt:       end,
			Location:     m.Location,
			HostUserID:   m.Host,
			SmallGroupID: m.SmallGroup,
			IsPublished:  published,
		})
		if err != nil {
			return sum, fmt.Errorf("meeting %q: %w", m.ID, err)
		}
		l.logger.Debug("seeded meeting", "meeting_id", created.ID, "starts_at", created.StartsAt)
		sum.Meetings++
	}

	return sum, nil
}

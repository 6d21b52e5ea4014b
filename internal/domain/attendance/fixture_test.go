package attendance_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rcos/rcos-io/internal/domain/access"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/sessionstore"
	"github.com/rcos/rcos-io/internal/sqlite"
	"github.com/stretchr/testify/require"
)

var fixtureNow = time.Date(2024, 9, 5, 16, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// codeSequence hands out the given codes in order.
type codeSequence struct {
	mu    sync.Mutex
	codes []string
}

func (s *codeSequence) Next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return attendance.NewCode()
	}
	code := s.codes[0]
	s.codes = s.codes[1:]
	return code, nil
}

// fixture wires real services over an in-memory database and room store.
//
// Seed data, all in semester s1:
//   - coord: coordinator enrollment
//   - host: designated host of m1
//   - mentor: mentor of small group g1
//   - alice (rcs smitha), bob: enrolled members
//   - carol: enrolled, member of g1 together with alice
//   - outsider: exists, not enrolled
//   - m1: large group meeting in progress (started 30m ago, ends in 90m)
//   - m2: small group meeting of g1 tomorrow
type fixture struct {
	db       *sqlite.DB
	clock    *fakeClock
	codes    *codeSequence
	store    *sessionstore.Memory
	rooms    *attendance.Rooms
	recorder *attendance.Recorder
	sample   float64
}

func newFixture(t *testing.T, opts attendance.Options) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		db:     db,
		clock:  &fakeClock{now: fixtureNow},
		codes:  &codeSequence{},
		sample: 1,
	}
	f.store = sessionstore.NewMemory(f.clock.Now)

	userRepo := sqlite.NewUserRepository(db)
	meetingRepo := sqlite.NewMeetingRepository(db)
	attendanceRepo := sqlite.NewAttendanceRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)

	require.NoError(t, meetingRepo.CreateSemester(ctx, &meeting.Semester{
		ID: "s1", Name: "Fall 2024",
		StartsOn: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		EndsOn:   time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC),
	}))

	for _, id := range []string{"coord", "host", "mentor", "alice", "bob", "carol", "outsider"} {
		u := &user.User{
			ID:        id,
			Email:     id + "@rpi.edu",
			FirstName: strings.ToUpper(id[:1]) + id[1:],
			Role:      user.RoleRPI,
			CreatedAt: fixtureNow,
		}
		if id == "alice" {
			rcs := "smitha"
			u.RCSID = &rcs
			u.Email = "alice@example.com"
		}
		require.NoError(t, userRepo.Create(ctx, u))
	}
	for _, id := range []string{"coord", "alice", "bob", "carol"} {
		require.NoError(t, userRepo.CreateEnrollment(ctx, &user.Enrollment{
			SemesterID:    "s1",
			UserID:        id,
			IsCoordinator: id == "coord",
			CreatedAt:     fixtureNow,
		}))
	}

	require.NoError(t, meetingRepo.CreateSmallGroup(ctx, &meeting.SmallGroup{ID: "g1", SemesterID: "s1", Title: "Group 1"}))
	require.NoError(t, meetingRepo.AddSmallGroupMentor(ctx, "g1", "mentor"))
	require.NoError(t, meetingRepo.AddSmallGroupMember(ctx, "g1", "alice"))
	require.NoError(t, meetingRepo.AddSmallGroupMember(ctx, "g1", "carol"))

	host := "host"
	group := "g1"
	require.NoError(t, meetingRepo.Create(ctx, &meeting.Meeting{
		ID: "m1", SemesterID: "s1", Name: "Large Group", Type: meeting.TypeLargeGroup,
		StartsAt: fixtureNow.Add(-30 * time.Minute), EndsAt: fixtureNow.Add(90 * time.Minute),
		HostUserID: &host, IsPublished: true, CreatedAt: fixtureNow,
	}))
	require.NoError(t, meetingRepo.Create(ctx, &meeting.Meeting{
		ID: "m2", SemesterID: "s1", Type: meeting.TypeSmallGroup,
		StartsAt: fixtureNow.Add(24 * time.Hour), EndsAt: fixtureNow.Add(26 * time.Hour),
		SmallGroupID: &group, IsPublished: true, CreatedAt: fixtureNow,
	}))

	meetings := meeting.NewService(meetingRepo, userRepo, nil)
	users := user.NewService(userRepo, nil)
	policy := access.NewPolicy(userRepo, meetingRepo)

	if opts.Now == nil {
		opts.Now = f.clock.Now
	}
	if opts.NewCode == nil {
		opts.NewCode = f.codes.Next
	}
	if opts.Sample == nil {
		opts.Sample = func() float64 { return f.sample }
	}

	f.rooms = attendance.NewRooms(meetings, f.store, policy, activityRepo, opts, nil)
	f.recorder = attendance.NewRecorder(meetings, users, f.store, attendanceRepo, policy, activityRepo, opts, nil)
	return f
}

func (f *fixture) open(t *testing.T, meetingID, opener string, codes ...string) *attendance.Room {
	t.Helper()
	f.codes.mu.Lock()
	f.codes.codes = append(f.codes.codes, codes...)
	f.codes.mu.Unlock()
	room, err := f.rooms.Open(context.Background(), attendance.OpenRequest{MeetingID: meetingID, OpenerID: opener})
	require.NoError(t, err)
	return room
}

func (f *fixture) selfSubmit(meetingID, code, caller string) (*attendance.SubmitResult, error) {
	return f.recorder.Submit(context.Background(), attendance.SubmitRequest{
		MeetingID: meetingID,
		Code:      code,
		CallerID:  caller,
	})
}

func (f *fixture) recordCount(t *testing.T, meetingID, userID string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(
		`SELECT COUNT(*) FROM meeting_attendances WHERE meeting_id = ? AND user_id = ?`,
		meetingID, userID).Scan(&n))
	return n
}

func (f *fixture) activityTypes(t *testing.T, meetingID string) []string {
	t.Helper()
	rows, err := f.db.Query(`SELECT activity_type FROM activity_log WHERE meeting_id = ? ORDER BY id`, meetingID)
	require.NoError(t, err)
	defer rows.Close()
	var types []string
	for rows.Next() {
		var typ string
		require.NoError(t, rows.Scan(&typ))
		types = append(types, typ)
	}
	require.NoError(t, rows.Err())
	return types
}

func userIDs(users []user.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func attendeeIDs(attendees []attendance.Attendee) []string {
	ids := make([]string, len(attendees))
	for i, a := range attendees {
		ids[i] = a.UserID
	}
	return ids
}

// stubMeetings serves a single meeting.
type stubMeetings struct {
	meeting  *meeting.Meeting
	expected []user.User
}

func (s *stubMeetings) Get(_ context.Context, id string) (*meeting.Meeting, error) {
	if s.meeting == nil || s.meeting.ID != id {
		return nil, meeting.ErrMeetingNotFound
	}
	return s.meeting, nil
}

func (s *stubMeetings) ExpectedAttendees(context.Context, *meeting.Meeting) ([]user.User, error) {
	return s.expected, nil
}

type allowAll struct{}

func (allowAll) CanHost(context.Context, string, *meeting.Meeting) error { return nil }

// Package testserver boots the full HTTP and MCP stack over an in-memory
// database and room store for tests.
package testserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rcos/rcos-io/internal/domain/access"
	"github.com/rcos/rcos-io/internal/domain/activity"
	"github.com/rcos/rcos-io/internal/domain/attendance"
	"github.com/rcos/rcos-io/internal/domain/meeting"
	"github.com/rcos/rcos-io/internal/domain/user"
	"github.com/rcos/rcos-io/internal/mcp"
	"github.com/rcos/rcos-io/internal/sessionstore"
	"github.com/rcos/rcos-io/internal/sqlite"
	"github.com/rcos/rcos-io/internal/transport"
	"github.com/stretchr/testify/require"
)

// Seeded users and their API tokens. All belong to semester "s1".
const (
	Coordinator = "coord"
	Host        = "host"
	Mentor      = "mentor"
	Alice       = "alice"
	Bob         = "bob"

	// InProgressMeeting is a large group meeting with Host as its host that
	// started 30 minutes ago and ends in 90.
	InProgressMeeting = "m1"
	// SmallGroupMeeting belongs to small group "g1", mentored by Mentor,
	// with Alice as its only member.
	SmallGroupMeeting = "m2"
)

// Token returns the bearer token seeded for userID.
func Token(userID string) string {
	return userID + "-token"
}

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Store  *sessionstore.Memory
}

// New starts a server with seeded data. opts configures the attendance
// services; zero values use the defaults.
func New(t *testing.T, opts attendance.Options) *TestServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	userRepo := sqlite.NewUserRepository(db)
	meetingRepo := sqlite.NewMeetingRepository(db)
	attendanceRepo := sqlite.NewAttendanceRepository(db)
	activityRepo := sqlite.NewActivityRepository(db)
	apiKeys := sqlite.NewAPIKeyRepository(db)
	store := sessionstore.NewMemory(opts.Now)

	seed(t, ctx, userRepo, meetingRepo, apiKeys)

	users := user.NewService(userRepo, nil)
	meetings := meeting.NewService(meetingRepo, userRepo, nil)
	activitySvc := activity.NewService(activityRepo, nil)
	policy := access.NewPolicy(userRepo, meetingRepo)
	rooms := attendance.NewRooms(meetings, store, policy, activityRepo, opts, nil)
	recorder := attendance.NewRecorder(meetings, users, store, attendanceRepo, policy, activityRepo, opts, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Rooms:      rooms,
			Attendance: recorder,
			Users:      users,
			Meetings:   meetings,
			Policy:     policy,
		},
		Resolver: apiKeys,
	})

	router := transport.NewServer(transport.Services{
		Rooms:      rooms,
		Attendance: recorder,
		Meetings:   meetings,
		Users:      users,
		Activity:   activitySvc,
		Policy:     policy,
	}, transport.AuthMiddleware(apiKeys, nil), mcp.NewHTTPHandler(mcpServer), nil)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{Server: server, DB: db, Store: store}
}

func seed(t *testing.T, ctx context.Context, users *sqlite.UserRepository, meetings *sqlite.MeetingRepository, apiKeys *sqlite.APIKeyRepository) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, meetings.CreateSemester(ctx, &meeting.Semester{
		ID: "s1", Name: "Current",
		StartsOn: now.AddDate(0, -1, 0),
		EndsOn:   now.AddDate(0, 3, 0),
	}))

	for _, id := range []string{Coordinator, Host, Mentor, Alice, Bob} {
		u := &user.User{
			ID:        id,
			Email:     id + "@rpi.edu",
			FirstName: id,
			Role:      user.RoleRPI,
			CreatedAt: now,
		}
		require.NoError(t, users.Create(ctx, u))
		require.NoError(t, apiKeys.Create(ctx, Token(id), id, "test"))
	}
	for _, id := range []string{Coordinator, Alice, Bob} {
		require.NoError(t, users.CreateEnrollment(ctx, &user.Enrollment{
			SemesterID:    "s1",
			UserID:        id,
			IsCoordinator: id == Coordinator,
			CreatedAt:     now,
		}))
	}

	require.NoError(t, meetings.CreateSmallGroup(ctx, &meeting.SmallGroup{ID: "g1", SemesterID: "s1", Title: "Group 1"}))
	require.NoError(t, meetings.AddSmallGroupMentor(ctx, "g1", Mentor))
	require.NoError(t, meetings.AddSmallGroupMember(ctx, "g1", Alice))

	host := Host
	group := "g1"
	require.NoError(t, meetings.Create(ctx, &meeting.Meeting{
		ID: InProgressMeeting, SemesterID: "s1", Name: "Large Group", Type: meeting.TypeLargeGroup,
		StartsAt: now.Add(-30 * time.Minute), EndsAt: now.Add(90 * time.Minute),
		HostUserID: &host, IsPublished: true, CreatedAt: now,
	}))
	require.NoError(t, meetings.Create(ctx, &meeting.Meeting{
		ID: SmallGroupMeeting, SemesterID: "s1", Type: meeting.TypeSmallGroup,
		StartsAt: now.Add(24 * time.Hour), EndsAt: now.Add(26 * time.Hour),
		SmallGroupID: &group, IsPublished: true, CreatedAt: now,
	}))
}
